package study

import "github.com/heartmarshall/flashdeck-backend/internal/domain"

// SessionDetail is a session together with its card snapshot.
type SessionDetail struct {
	Session domain.LearningSession
	Cards   []domain.Card
	// Answered mirrors the snapshot's answered flags, indexed like Cards.
	Answered []bool
}

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	Verdict    domain.AnswerVerdict
	Scheduling domain.CardScheduling
	Record     domain.ReviewRecord
}

// CardHistoryResult is a card's full review history plus its current
// scheduling state.
type CardHistoryResult struct {
	Records    []domain.ReviewRecord
	Scheduling domain.CardScheduling
	Difficulty domain.DifficultyLabel
}
