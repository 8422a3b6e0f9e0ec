package deck

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// AddCard appends a card to the end of the deck. Owner only.
func (s *Service) AddCard(ctx context.Context, deckID uuid.UUID, input CreateCardInput) (*domain.Card, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("deck.AddCard: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.AddCard: %w", domain.ErrUnauthorized)
	}

	if _, err := s.ownedDeck(ctx, deckID, userID); err != nil {
		return nil, fmt.Errorf("deck.AddCard: %w", err)
	}

	created, err := s.cards.Create(ctx, &domain.Card{
		ID:     uuid.New(),
		DeckID: deckID,
		Front:  input.Front,
		Back:   input.Back,
	})
	if err != nil {
		return nil, fmt.Errorf("deck.AddCard: %w", err)
	}

	return created, nil
}

// UpdateCard modifies the card's faces. Deck owner only. Editing a card does
// not touch its scheduling state.
func (s *Service) UpdateCard(ctx context.Context, cardID uuid.UUID, input UpdateCardInput) (*domain.Card, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("deck.UpdateCard: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.UpdateCard: %w", domain.ErrUnauthorized)
	}

	if _, err := s.ownedCard(ctx, cardID, userID); err != nil {
		return nil, fmt.Errorf("deck.UpdateCard: %w", err)
	}

	updated, err := s.cards.Update(ctx, cardID, input.Front, input.Back)
	if err != nil {
		return nil, fmt.Errorf("deck.UpdateCard: %w", err)
	}

	return updated, nil
}

// DeleteCard removes a card. Deck owner only. Scheduling state and review
// records cascade at the database level.
func (s *Service) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return fmt.Errorf("deck.DeleteCard: %w", domain.ErrUnauthorized)
	}

	if _, err := s.ownedCard(ctx, cardID, userID); err != nil {
		return fmt.Errorf("deck.DeleteCard: %w", err)
	}

	if err := s.cards.Delete(ctx, cardID); err != nil {
		return fmt.Errorf("deck.DeleteCard: %w", err)
	}

	return nil
}

// ownedCard loads a card and verifies the current user owns its deck.
func (s *Service) ownedCard(ctx context.Context, cardID, userID uuid.UUID) (*domain.Card, error) {
	c, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedDeck(ctx, c.DeckID, userID); err != nil {
		return nil, err
	}
	return c, nil
}
