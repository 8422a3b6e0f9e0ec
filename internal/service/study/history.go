package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// CardHistory returns the card's full review history, oldest first, with its
// current scheduling state. A never-reviewed card has an empty history and
// default scheduling, never an error.
func (s *Service) CardHistory(ctx context.Context, cardID uuid.UUID) (*CardHistoryResult, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.CardHistory: %w", domain.ErrUnauthorized)
	}

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("study.CardHistory: %w", err)
	}

	deck, err := s.decks.GetByID(ctx, card.DeckID)
	if err != nil {
		return nil, fmt.Errorf("study.CardHistory: %w", err)
	}
	if deck.OwnerID != userID && !deck.IsPublic {
		return nil, fmt.Errorf("study.CardHistory: %w", domain.ErrForbidden)
	}

	records, err := s.reviews.HistoryForCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("study.CardHistory: %w", err)
	}

	scheduling, err := s.cards.GetScheduling(ctx, cardID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("study.CardHistory: %w", err)
		}
		fresh := domain.NewScheduling(cardID, card.CreatedAt, s.cfg.DefaultEaseFactor)
		scheduling = &fresh
	}

	return &CardHistoryResult{
		Records:    records,
		Scheduling: *scheduling,
		Difficulty: scheduling.Difficulty(),
	}, nil
}
