package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user with default values. Returns a filled domain.User.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:           uuid.New(),
		Email:        "testuser-" + suffix + "@example.com",
		Username:     "testuser-" + suffix,
		Role:         domain.UserRoleUser,
		PasswordHash: "$2a$10$testhashtesthashtesthashtesthashtesthashtesthashtestha",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, username, bio, avatar_url, role, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.Username, user.Bio, user.AvatarURL, string(user.Role), user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}

	return user
}

// SeedDeck creates a deck owned by the given user. Returns a filled domain.Deck.
func SeedDeck(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID) domain.Deck {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	deck := domain.Deck{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       "Deck " + suffix,
		Description: "Seeded test deck " + suffix,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO decks (id, owner_id, title, description, is_public, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		deck.ID, deck.OwnerID, deck.Title, deck.Description, deck.IsPublic, deck.CreatedAt, deck.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedDeck insert deck: %v", err)
	}

	return deck
}

// SeedCard creates a card in the given deck at the given position.
// Returns a filled domain.Card. No scheduling row is created, so the card
// counts as never-reviewed (due immediately).
func SeedCard(t *testing.T, pool *pgxpool.Pool, deckID uuid.UUID, position int) domain.Card {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	card := domain.Card{
		ID:        uuid.New(),
		DeckID:    deckID,
		Front:     "Front " + suffix,
		Back:      "Back " + suffix,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO cards (id, deck_id, front, back, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		card.ID, card.DeckID, card.Front, card.Back, card.Position, card.CreatedAt, card.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedCard insert card: %v", err)
	}

	return card
}

// SeedScheduling creates a scheduling row for a card with the given due time.
// Returns the filled domain.CardScheduling.
func SeedScheduling(t *testing.T, pool *pgxpool.Pool, cardID uuid.UUID, due time.Time) domain.CardScheduling {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	s := domain.CardScheduling{
		CardID:     cardID,
		EaseFactor: 2.5,
		Due:        due.UTC().Truncate(time.Microsecond),
		UpdatedAt:  now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO card_scheduling (card_id, ease_factor, interval_days, repetitions, incorrect_count,
		     timed_reviews, total_time_ms, average_time_ms, due, last_reviewed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.CardID, s.EaseFactor, s.IntervalDays, s.Repetitions, s.IncorrectCount,
		s.TimedReviews, s.TotalTimeMs, s.AverageTimeMs, s.Due, s.LastReviewedAt, s.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedScheduling insert card_scheduling: %v", err)
	}

	return s
}

// SeedSession creates an ACTIVE learning session over the given cards, with
// the snapshot positions following the slice order.
// Returns a filled domain.LearningSession.
func SeedSession(t *testing.T, pool *pgxpool.Pool, userID, deckID uuid.UUID, cardIDs []uuid.UUID) domain.LearningSession {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := domain.LearningSession{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    deckID,
		Status:    domain.SessionStatusActive,
		CardCount: len(cardIDs),
		StartedAt: now,
		CreatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO learning_sessions (id, user_id, deck_id, status, cursor_index, card_count, started_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.DeckID, string(session.Status),
		session.CursorIndex, session.CardCount, session.StartedAt, session.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSession insert session: %v", err)
	}

	for i, cardID := range cardIDs {
		_, err := pool.Exec(ctx,
			`INSERT INTO session_cards (session_id, card_id, position, front, back)
			 SELECT $1, id, $3, front, back FROM cards WHERE id = $2`,
			session.ID, cardID, i,
		)
		if err != nil {
			t.Fatalf("testhelper: SeedSession insert session_card[%d]: %v", i, err)
		}
	}

	return session
}
