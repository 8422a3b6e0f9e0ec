package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/internal/service/study/sm2"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// SubmitAnswer evaluates an answer for a card in the session, applies the
// scheduling update, and appends a review record, all in one transaction.
// Answering the same card twice in a session is rejected with ErrConflict.
func (s *Service) SubmitAnswer(ctx context.Context, input SubmitAnswerInput) (*SubmitResult, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("study.SubmitAnswer: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.SubmitAnswer: %w", domain.ErrUnauthorized)
	}

	session, err := s.sessions.GetByID(ctx, userID, input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("study.SubmitAnswer: %w", err)
	}
	if session.Status != domain.SessionStatusActive {
		return nil, fmt.Errorf("study.SubmitAnswer: session is not active: %w", domain.ErrConflict)
	}

	if err := s.cardInSession(ctx, session.ID, input.CardID); err != nil {
		return nil, fmt.Errorf("study.SubmitAnswer: %w", err)
	}

	card, err := s.cards.GetByID(ctx, input.CardID)
	if err != nil {
		return nil, fmt.Errorf("study.SubmitAnswer: %w", err)
	}

	// The AI checker can take seconds; judge the answer before opening the
	// transaction so no row locks are held across the provider call.
	verdict := s.evaluator.Evaluate(ctx, card.Back, input.Answer)

	now := s.now()
	result := &SubmitResult{Verdict: verdict}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.reviews.ExistsInSession(ctx, session.ID, card.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("card already answered in this session: %w", domain.ErrConflict)
		}

		scheduling, err := s.cards.GetSchedulingForUpdate(ctx, card.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			// First review of this card.
			fresh := domain.NewScheduling(card.ID, card.CreatedAt, s.cfg.DefaultEaseFactor)
			scheduling = &fresh
		}

		next := sm2.Review(s.params, stateFromScheduling(scheduling), verdict.IsCorrect, input.ResponseTimeMs, now)
		updated := schedulingFromState(card.ID, next)
		if err := s.cards.UpsertScheduling(ctx, updated); err != nil {
			return err
		}
		result.Scheduling = *updated

		record, err := s.reviews.Create(ctx, &domain.ReviewRecord{
			ID:             uuid.New(),
			SessionID:      session.ID,
			CardID:         card.ID,
			IsCorrect:      verdict.IsCorrect,
			ResponseTimeMs: input.ResponseTimeMs,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("append review record: %w", err)
		}
		result.Record = *record

		return s.sessions.MarkAnswered(ctx, session.ID, card.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("study.SubmitAnswer: %w", err)
	}

	s.log.InfoContext(ctx, "answer submitted",
		"session_id", session.ID, "card_id", card.ID, "correct", verdict.IsCorrect)

	return result, nil
}

// cardInSession verifies the card belongs to the session's snapshot.
func (s *Service) cardInSession(ctx context.Context, sessionID, cardID uuid.UUID) error {
	snapshot, err := s.sessions.Cards(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, sc := range snapshot {
		if sc.CardID == cardID {
			return nil
		}
	}
	return fmt.Errorf("card %s is not part of the session: %w", cardID, domain.ErrNotFound)
}
