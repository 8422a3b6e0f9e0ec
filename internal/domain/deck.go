package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deck is a collection of flashcards owned by a user.
// Deleting a deck cascades to its cards.
type Deck struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Card is a single flashcard. Front and back hold markdown text.
// A card belongs to exactly one deck; Position fixes the editing order
// within the deck (not meaningful to scheduling).
type Card struct {
	ID        uuid.UUID
	DeckID    uuid.UUID
	Front     string
	Back      string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeckSummary is the list read model: deck metadata plus derived counts,
// without the card collection.
type DeckSummary struct {
	Deck
	CardCount int
	DueCount  int
	Status    DeckStatus
}

// DeckDetail is the detail read model: the deck with its full card list
// in editing order.
type DeckDetail struct {
	Deck
	Cards []Card
}

// DeckStats holds aggregated learning statistics for one deck.
type DeckStats struct {
	DeckID          uuid.UUID
	CardCount       int
	DueCount        int
	Status          DeckStatus
	AverageEase     float64
	TotalReviews    int
	AccuracyPercent int
	Difficulty      DifficultyCounts
}

// DifficultyCounts holds the per-label card distribution of a deck.
type DifficultyCounts struct {
	Easy   int
	Medium int
	Hard   int
}

// DeckFilter narrows a deck list query. Zero value means "all own decks".
type DeckFilter struct {
	Search        string
	Status        *DeckStatus
	IncludePublic bool
	Limit         int
	Offset        int
}
