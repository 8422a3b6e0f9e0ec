package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// GenerateDeck asks the AI provider for a set of cards about the prompt and
// persists them as a new private deck in a single transaction. Returns
// domain.ErrTimeout when the provider does not respond in time.
func (s *Service) GenerateDeck(ctx context.Context, input GenerateDeckInput) (*DeckDetailResult, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("deck.GenerateDeck: AI generation is not configured: %w", domain.ErrValidation)
	}

	if err := input.Validate(s.aiCfg.GenerateCardLimit); err != nil {
		return nil, fmt.Errorf("deck.GenerateDeck: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("deck.GenerateDeck: %w", domain.ErrUnauthorized)
	}

	generated, err := s.gen.GenerateDeck(ctx, buildTopic(input), input.CardCount)
	if err != nil {
		return nil, fmt.Errorf("deck.GenerateDeck: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	deck := &domain.Deck{
		ID:          uuid.New(),
		OwnerID:     userID,
		Title:       input.Prompt,
		Description: fmt.Sprintf("Generated deck (%d cards)", len(generated)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result := &DeckDetailResult{}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		created, err := s.decks.Create(ctx, deck)
		if err != nil {
			return fmt.Errorf("create deck: %w", err)
		}
		result.Deck = *created

		for _, g := range generated {
			card, err := s.cards.Create(ctx, &domain.Card{
				ID:     uuid.New(),
				DeckID: created.ID,
				Front:  g.Front,
				Back:   g.Back,
			})
			if err != nil {
				return fmt.Errorf("create card: %w", err)
			}
			result.Cards = append(result.Cards, CardView{
				Card:          *card,
				RenderedFront: renderMarkdown(card.Front),
				RenderedBack:  renderMarkdown(card.Back),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deck.GenerateDeck: %w", err)
	}

	s.log.InfoContext(ctx, "deck generated",
		"deck_id", result.ID, "user_id", userID, "cards", len(result.Cards))

	return result, nil
}

// buildTopic folds the optional language and difficulty hints into the
// topic line handed to the provider.
func buildTopic(input GenerateDeckInput) string {
	topic := strings.TrimSpace(input.Prompt)
	if input.Language != "" {
		topic += ", in " + input.Language
	}
	if input.Difficulty != "" {
		topic += ", difficulty: " + input.Difficulty
	}
	return topic
}
