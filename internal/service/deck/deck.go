package deck

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// CreateDeck creates an empty deck owned by the current user.
func (s *Service) CreateDeck(ctx context.Context, input CreateDeckInput) (*domain.Deck, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("deck.CreateDeck: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.CreateDeck: %w", domain.ErrUnauthorized)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	created, err := s.decks.Create(ctx, &domain.Deck{
		ID:          uuid.New(),
		OwnerID:     userID,
		Title:       input.Title,
		Description: input.Description,
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("deck.CreateDeck: %w", err)
	}

	s.log.InfoContext(ctx, "deck created", "deck_id", created.ID, "user_id", userID)

	return created, nil
}

// GetDeck returns the deck with its cards in editing order, card faces
// rendered to HTML. The owner sees any deck; others only public ones.
func (s *Service) GetDeck(ctx context.Context, deckID uuid.UUID) (*DeckDetailResult, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.GetDeck: %w", domain.ErrUnauthorized)
	}

	d, err := s.readableDeck(ctx, deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("deck.GetDeck: %w", err)
	}

	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("deck.GetDeck: list cards: %w", err)
	}

	views := make([]CardView, len(cards))
	for i, c := range cards {
		views[i] = CardView{
			Card:          c,
			RenderedFront: renderMarkdown(c.Front),
			RenderedBack:  renderMarkdown(c.Back),
		}
	}

	return &DeckDetailResult{Deck: *d, Cards: views}, nil
}

// ListDecks returns a page of the current user's deck summaries, optionally
// including public decks of other users.
func (s *Service) ListDecks(ctx context.Context, input ListDecksInput) (*DeckPage, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("deck.ListDecks: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.ListDecks: %w", domain.ErrUnauthorized)
	}

	filter := domain.DeckFilter{
		Search:        input.Search,
		Status:        input.Status,
		IncludePublic: input.IncludePublic,
		Limit:         input.Limit,
		Offset:        input.Offset,
	}

	summaries, total, err := s.decks.ListSummaries(ctx, userID, filter, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("deck.ListDecks: %w", err)
	}

	return &DeckPage{Decks: summaries, Total: total}, nil
}

// UpdateDeck modifies the deck's metadata. Owner only.
func (s *Service) UpdateDeck(ctx context.Context, deckID uuid.UUID, input UpdateDeckInput) (*domain.Deck, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("deck.UpdateDeck: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.UpdateDeck: %w", domain.ErrUnauthorized)
	}

	if _, err := s.ownedDeck(ctx, deckID, userID); err != nil {
		return nil, fmt.Errorf("deck.UpdateDeck: %w", err)
	}

	updated, err := s.decks.Update(ctx, deckID, input.Title, input.Description, input.IsPublic)
	if err != nil {
		return nil, fmt.Errorf("deck.UpdateDeck: %w", err)
	}

	return updated, nil
}

// DeleteDeck removes the deck and all its cards. Owner only.
func (s *Service) DeleteDeck(ctx context.Context, deckID uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return fmt.Errorf("deck.DeleteDeck: %w", domain.ErrUnauthorized)
	}

	if _, err := s.ownedDeck(ctx, deckID, userID); err != nil {
		return fmt.Errorf("deck.DeleteDeck: %w", err)
	}

	if err := s.decks.Delete(ctx, deckID); err != nil {
		return fmt.Errorf("deck.DeleteDeck: %w", err)
	}

	s.log.InfoContext(ctx, "deck deleted", "deck_id", deckID, "user_id", userID)

	return nil
}

// Stats returns the deck's aggregated learning statistics. Readable decks
// only, same visibility rule as GetDeck.
func (s *Service) Stats(ctx context.Context, deckID uuid.UUID) (*domain.DeckStats, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.Stats: %w", domain.ErrUnauthorized)
	}

	if _, err := s.readableDeck(ctx, deckID, userID); err != nil {
		return nil, fmt.Errorf("deck.Stats: %w", err)
	}

	stats, err := s.decks.Stats(ctx, deckID, time.Now().UTC(), s.srsCfg.DefaultEaseFactor)
	if err != nil {
		return nil, fmt.Errorf("deck.Stats: %w", err)
	}

	return stats, nil
}
