// Package study implements the learning flow: session lifecycle, answer
// submission with SM-2 scheduling updates, card review history, and user
// statistics derived from the review log.
package study

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/adapter/provider/openai"
	"github.com/heartmarshall/flashdeck-backend/internal/config"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/internal/service/study/sm2"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type deckRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

type cardRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetScheduling(ctx context.Context, cardID uuid.UUID) (*domain.CardScheduling, error)
	GetSchedulingForUpdate(ctx context.Context, cardID uuid.UUID) (*domain.CardScheduling, error)
	UpsertScheduling(ctx context.Context, s *domain.CardScheduling) error
	ListDueIDs(ctx context.Context, deckID uuid.UUID, now time.Time, limit int) ([]uuid.UUID, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	DueCountByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (int, error)
}

type sessionRepo interface {
	Create(ctx context.Context, session *domain.LearningSession, cardIDs []uuid.UUID) (*domain.LearningSession, error)
	GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*domain.LearningSession, error)
	GetActive(ctx context.Context, userID, deckID uuid.UUID) (*domain.LearningSession, error)
	Cards(ctx context.Context, sessionID uuid.UUID) ([]domain.SessionCard, error)
	CardContents(ctx context.Context, sessionID uuid.UUID) ([]domain.Card, error)
	UpdateCursor(ctx context.Context, userID, sessionID uuid.UUID, cursor int) (*domain.LearningSession, error)
	MarkAnswered(ctx context.Context, sessionID, cardID uuid.UUID) error
	Finish(ctx context.Context, userID, sessionID uuid.UUID, status domain.SessionStatus, summary domain.SessionSummary, endedAt time.Time) (*domain.LearningSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.LearningSession, int, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type reviewLogRepo interface {
	Create(ctx context.Context, rec *domain.ReviewRecord) (*domain.ReviewRecord, error)
	HistoryForCard(ctx context.Context, cardID uuid.UUID) ([]domain.ReviewRecord, error)
	ExistsInSession(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error)
	SessionCounts(ctx context.Context, sessionID uuid.UUID) (correct, incorrect int, err error)
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ReviewRecord, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	StreakDays(ctx context.Context, userID uuid.UUID, dayStart time.Time, lastNDays int) ([]domain.DayReviewCount, error)
}

// answerChecker is the optional AI similarity judge. Nil when disabled.
type answerChecker interface {
	CheckAnswer(ctx context.Context, expected, given string) (*openai.SimilarityResult, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the study business logic.
type Service struct {
	log       *slog.Logger
	decks     deckRepo
	cards     cardRepo
	sessions  sessionRepo
	reviews   reviewLogRepo
	evaluator *Evaluator
	tx        txManager
	cfg       config.SRSConfig
	params    sm2.Params
	now       func() time.Time
}

// NewService creates a new study service instance. checker may be nil when
// the AI similarity judge is disabled.
func NewService(
	logger *slog.Logger,
	decks deckRepo,
	cards cardRepo,
	sessions sessionRepo,
	reviews reviewLogRepo,
	checker answerChecker,
	tx txManager,
	cfg config.SRSConfig,
	aiCfg config.AIConfig,
) *Service {
	log := logger.With("service", "study")
	return &Service{
		log:       log,
		decks:     decks,
		cards:     cards,
		sessions:  sessions,
		reviews:   reviews,
		evaluator: NewEvaluator(log, checker, aiCfg.SimilarityCutoff),
		tx:        tx,
		cfg:       cfg,
		params: sm2.Params{
			DefaultEase:       cfg.DefaultEaseFactor,
			MinEase:           cfg.MinEaseFactor,
			MaxEase:           cfg.MaxEaseFactor,
			MaxIntervalDays:   cfg.MaxIntervalDays,
			LapseIntervalDays: cfg.LapseIntervalDays,
		},
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// ---------------------------------------------------------------------------
// Scheduling state conversion
// ---------------------------------------------------------------------------

// stateFromScheduling converts the persisted scheduling row into the pure
// algorithm state.
func stateFromScheduling(cs *domain.CardScheduling) sm2.State {
	s := sm2.State{
		Ease:           cs.EaseFactor,
		IntervalDays:   cs.IntervalDays,
		Repetitions:    cs.Repetitions,
		IncorrectCount: cs.IncorrectCount,
		TimedReviews:   cs.TimedReviews,
		TotalTimeMs:    cs.TotalTimeMs,
		AverageTimeMs:  cs.AverageTimeMs,
		Due:            cs.Due,
	}
	if cs.LastReviewedAt != nil {
		s.LastReviewedAt = *cs.LastReviewedAt
	}
	return s
}

// schedulingFromState converts the algorithm state back into a persistable
// scheduling row.
func schedulingFromState(cardID uuid.UUID, s sm2.State) *domain.CardScheduling {
	cs := &domain.CardScheduling{
		CardID:         cardID,
		EaseFactor:     s.Ease,
		IntervalDays:   s.IntervalDays,
		Repetitions:    s.Repetitions,
		IncorrectCount: s.IncorrectCount,
		TimedReviews:   s.TimedReviews,
		TotalTimeMs:    s.TotalTimeMs,
		AverageTimeMs:  s.AverageTimeMs,
		Due:            s.Due,
	}
	if !s.LastReviewedAt.IsZero() {
		t := s.LastReviewedAt
		cs.LastReviewedAt = &t
	}
	return cs
}
