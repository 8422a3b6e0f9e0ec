// Package deck implements deck and card management: CRUD, listing with
// derived counts, per-deck statistics, and AI deck generation.
package deck

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/adapter/provider/openai"
	"github.com/heartmarshall/flashdeck-backend/internal/config"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// deckRepo defines the deck repository interface needed by deck service.
type deckRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error)
	ListSummaries(ctx context.Context, ownerID uuid.UUID, filter domain.DeckFilter, now time.Time) ([]domain.DeckSummary, int, error)
	Stats(ctx context.Context, deckID uuid.UUID, now time.Time, defaultEase float64) (*domain.DeckStats, error)
	Create(ctx context.Context, d *domain.Deck) (*domain.Deck, error)
	Update(ctx context.Context, id uuid.UUID, title, description *string, isPublic *bool) (*domain.Deck, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// cardRepo defines the card repository interface needed by deck service.
type cardRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error)
	Create(ctx context.Context, c *domain.Card) (*domain.Card, error)
	Update(ctx context.Context, id uuid.UUID, front, back *string) (*domain.Card, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// generator defines the AI deck generation interface. Nil when AI is not
// configured.
type generator interface {
	GenerateDeck(ctx context.Context, topic string, count int) ([]openai.GeneratedCard, error)
}

// txManager defines the transaction manager interface needed by deck service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements deck operations.
type Service struct {
	log    *slog.Logger
	decks  deckRepo
	cards  cardRepo
	gen    generator
	tx     txManager
	srsCfg config.SRSConfig
	aiCfg  config.AIConfig
}

// NewService creates a new deck service instance. gen may be nil when AI
// generation is disabled.
func NewService(
	logger *slog.Logger,
	decks deckRepo,
	cards cardRepo,
	gen generator,
	tx txManager,
	srsCfg config.SRSConfig,
	aiCfg config.AIConfig,
) *Service {
	return &Service{
		log:    logger.With("service", "deck"),
		decks:  decks,
		cards:  cards,
		gen:    gen,
		tx:     tx,
		srsCfg: srsCfg,
		aiCfg:  aiCfg,
	}
}

// ownedDeck loads a deck and verifies the user owns it.
// Returns ErrForbidden for someone else's deck, public or not.
func (s *Service) ownedDeck(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error) {
	d, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != userID {
		return nil, domain.ErrForbidden
	}
	return d, nil
}

// readableDeck loads a deck and verifies the user may read it: the owner
// always can, everyone else only when the deck is public.
func (s *Service) readableDeck(ctx context.Context, deckID, userID uuid.UUID) (*domain.Deck, error) {
	d, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != userID && !d.IsPublic {
		return nil, domain.ErrForbidden
	}
	return d, nil
}
