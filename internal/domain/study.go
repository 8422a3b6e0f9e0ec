package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardScheduling is the per-card spaced-repetition state. It is created
// implicitly with the card's first review and mutated by every review
// after that; a card with no reviews is represented by NewScheduling.
type CardScheduling struct {
	CardID         uuid.UUID
	EaseFactor     float64
	IntervalDays   int
	Repetitions    int
	IncorrectCount int
	TimedReviews   int
	TotalTimeMs    int64
	AverageTimeMs  float64
	Due            time.Time
	LastReviewedAt *time.Time
	UpdatedAt      time.Time
}

// NewScheduling returns the default state for a card that has never been
// reviewed: default ease, due immediately (at card creation time).
func NewScheduling(cardID uuid.UUID, createdAt time.Time, defaultEase float64) CardScheduling {
	return CardScheduling{
		CardID:     cardID,
		EaseFactor: defaultEase,
		Due:        createdAt,
	}
}

// IsDue returns true if the card needs review at the given time.
func (s *CardScheduling) IsDue(now time.Time) bool {
	return !s.Due.After(now)
}

// Difficulty returns the difficulty label for the card's current ease factor.
func (s *CardScheduling) Difficulty() DifficultyLabel {
	return DifficultyFor(s.EaseFactor)
}

// ReviewRecord is one immutable entry in the append-only review log.
type ReviewRecord struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	CardID         uuid.UUID
	IsCorrect      bool
	ResponseTimeMs *int
	CreatedAt      time.Time
}

// LearningSession is one bounded learning pass over a snapshot of a deck's
// due cards. Status moves ACTIVE -> COMPLETED | ABANDONED and never back.
type LearningSession struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DeckID      uuid.UUID
	Status      SessionStatus
	CursorIndex int
	CardCount   int
	StartedAt   time.Time
	EndedAt     *time.Time
	Summary     *SessionSummary
	CreatedAt   time.Time
}

// SessionCard is one entry of a session's card snapshot. Position is fixed
// at session creation; deck edits never reorder an active session.
type SessionCard struct {
	SessionID uuid.UUID
	CardID    uuid.UUID
	Position  int
	Answered  bool
}

// SessionSummary holds the aggregate outcome of a finished session.
type SessionSummary struct {
	Correct         int
	Incorrect       int
	Total           int
	AccuracyPercent int
	DurationMs      int64
}

// Summarize computes a SessionSummary from the counters. Total is the number
// of reviews actually submitted, so abandoning early never divides by a card
// count that was not reached; zero reviews yield accuracy 0.
func Summarize(correct, incorrect int, startedAt, endedAt time.Time) SessionSummary {
	total := correct + incorrect
	accuracy := 0
	if total > 0 {
		accuracy = int(float64(correct)/float64(total)*100 + 0.5)
	}
	return SessionSummary{
		Correct:         correct,
		Incorrect:       incorrect,
		Total:           total,
		AccuracyPercent: accuracy,
		DurationMs:      endedAt.Sub(startedAt).Milliseconds(),
	}
}

// AnswerVerdict is the evaluator's judgment of a submitted answer.
type AnswerVerdict struct {
	IsCorrect       bool
	CanonicalAnswer string
	Similarity      *float64
	Category        string
	Feedback        string
}

// DayReviewCount holds the review count for one calendar day.
type DayReviewCount struct {
	Date  time.Time
	Count int
}

// UserStats holds aggregated learning statistics for a user, recomputed
// from the review log on read rather than cached on the user row.
type UserStats struct {
	TotalDecks            int
	TotalCards            int
	TotalSessions         int
	TotalReviews          int
	DueCardsCount         int
	LearningStreak        int
	RecentAccuracyPercent int
	AverageResponseTimeMs float64
}
