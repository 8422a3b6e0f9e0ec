// Package card implements the Card repository using PostgreSQL, covering
// both the card rows and their spaced-repetition scheduling state.
package card

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// Repo provides card and scheduling persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new card repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const cardColumns = `id, deck_id, front, back, position, created_at, updated_at`

// createSQL appends the card at the end of the deck's editing order.
const createSQL = `
INSERT INTO cards (id, deck_id, front, back, position, created_at, updated_at)
VALUES ($1, $2, $3, $4,
    coalesce((SELECT max(position) + 1 FROM cards WHERE deck_id = $2), 0),
    $5, $6)
RETURNING ` + cardColumns

const getByIDSQL = `
SELECT ` + cardColumns + `
FROM cards
WHERE id = $1`

const listByDeckSQL = `
SELECT ` + cardColumns + `
FROM cards
WHERE deck_id = $1
ORDER BY position ASC`

const updateSQL = `
UPDATE cards
SET front      = coalesce($2, front),
    back       = coalesce($3, back),
    updated_at = now()
WHERE id = $1
RETURNING ` + cardColumns

const deleteSQL = `DELETE FROM cards WHERE id = $1`

const schedulingColumns = `card_id, ease_factor, interval_days, repetitions, incorrect_count,
timed_reviews, total_time_ms, average_time_ms, due, last_reviewed_at, updated_at`

const getSchedulingSQL = `
SELECT ` + schedulingColumns + `
FROM card_scheduling
WHERE card_id = $1`

// getSchedulingForUpdateSQL locks the scheduling row for the duration of the
// enclosing transaction so concurrent answer submissions for the same card
// serialize instead of clobbering each other.
const getSchedulingForUpdateSQL = getSchedulingSQL + `
FOR UPDATE`

const upsertSchedulingSQL = `
INSERT INTO card_scheduling (card_id, ease_factor, interval_days, repetitions, incorrect_count,
    timed_reviews, total_time_ms, average_time_ms, due, last_reviewed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (card_id) DO UPDATE SET
    ease_factor      = excluded.ease_factor,
    interval_days    = excluded.interval_days,
    repetitions      = excluded.repetitions,
    incorrect_count  = excluded.incorrect_count,
    timed_reviews    = excluded.timed_reviews,
    total_time_ms    = excluded.total_time_ms,
    average_time_ms  = excluded.average_time_ms,
    due              = excluded.due,
    last_reviewed_at = excluded.last_reviewed_at,
    updated_at       = now()`

const listDueSQL = `
SELECT c.id
FROM cards c
LEFT JOIN card_scheduling cs ON cs.card_id = c.id
WHERE c.deck_id = $1 AND (cs.card_id IS NULL OR cs.due <= $2)
ORDER BY coalesce(cs.due, c.created_at) ASC, c.position ASC
LIMIT $3`

const dueCountByDeckSQL = `
SELECT count(*)
FROM cards c
LEFT JOIN card_scheduling cs ON cs.card_id = c.id
WHERE c.deck_id = $1 AND (cs.card_id IS NULL OR cs.due <= $2)`

const countByOwnerSQL = `
SELECT count(*)
FROM cards c
JOIN decks d ON c.deck_id = d.id
WHERE d.owner_id = $1`

const dueCountByOwnerSQL = `
SELECT count(*)
FROM cards c
JOIN decks d ON c.deck_id = d.id
LEFT JOIN card_scheduling cs ON cs.card_id = c.id
WHERE d.owner_id = $1 AND (cs.card_id IS NULL OR cs.due <= $2)`

// ---------------------------------------------------------------------------
// Card operations
// ---------------------------------------------------------------------------

// GetByID returns a card by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	c, err := scanCard(querier.QueryRow(ctx, getByIDSQL, id))
	if err != nil {
		return nil, mapError(err, "card", id)
	}

	return c, nil
}

// ListByDeck returns all cards of a deck in editing order (position ASC).
func (r *Repo) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listByDeckSQL, deckID)
	if err != nil {
		return nil, fmt.Errorf("list cards by deck: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	return cards, nil
}

// Create inserts a new card at the end of the deck and returns it.
func (r *Repo) Create(ctx context.Context, c *domain.Card) (*domain.Card, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, createSQL,
		c.ID, c.DeckID, c.Front, c.Back, c.CreatedAt, c.UpdatedAt,
	)

	created, err := scanCard(row)
	if err != nil {
		return nil, mapError(err, "card", c.ID)
	}

	return created, nil
}

// Update modifies front and back for the given card.
// Nil fields are left unchanged (coalesce in SQL).
func (r *Repo) Update(ctx context.Context, id uuid.UUID, front, back *string) (*domain.Card, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	c, err := scanCard(querier.QueryRow(ctx, updateSQL, id, front, back))
	if err != nil {
		return nil, mapError(err, "card", id)
	}

	return c, nil
}

// Delete removes a card by ID. Scheduling state and review records cascade.
// Returns domain.ErrNotFound if 0 rows affected.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	ct, err := querier.Exec(ctx, deleteSQL, id)
	if err != nil {
		return mapError(err, "card", id)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Scheduling operations
// ---------------------------------------------------------------------------

// GetScheduling returns the scheduling state for a card.
// Returns domain.ErrNotFound if the card has never been reviewed.
func (r *Repo) GetScheduling(ctx context.Context, cardID uuid.UUID) (*domain.CardScheduling, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	s, err := scanScheduling(querier.QueryRow(ctx, getSchedulingSQL, cardID))
	if err != nil {
		return nil, mapError(err, "card_scheduling", cardID)
	}

	return s, nil
}

// GetSchedulingForUpdate returns the scheduling state with a row lock held
// until the enclosing transaction ends. Must be called inside RunInTx.
// Returns domain.ErrNotFound if the card has never been reviewed.
func (r *Repo) GetSchedulingForUpdate(ctx context.Context, cardID uuid.UUID) (*domain.CardScheduling, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	s, err := scanScheduling(querier.QueryRow(ctx, getSchedulingForUpdateSQL, cardID))
	if err != nil {
		return nil, mapError(err, "card_scheduling", cardID)
	}

	return s, nil
}

// UpsertScheduling inserts or replaces the scheduling state for a card.
func (r *Repo) UpsertScheduling(ctx context.Context, s *domain.CardScheduling) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := querier.Exec(ctx, upsertSchedulingSQL,
		s.CardID, s.EaseFactor, s.IntervalDays, s.Repetitions, s.IncorrectCount,
		s.TimedReviews, s.TotalTimeMs, s.AverageTimeMs, s.Due, s.LastReviewedAt,
	)
	if err != nil {
		return mapError(err, "card_scheduling", s.CardID)
	}

	return nil
}

// ListDueIDs returns up to limit due card IDs of a deck, soonest-due first.
// Never-reviewed cards count as due since their creation time.
func (r *Repo) ListDueIDs(ctx context.Context, deckID uuid.UUID, now time.Time, limit int) ([]uuid.UUID, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listDueSQL, deckID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due card id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due card ids: %w", err)
	}

	return ids, nil
}

// DueCountByDeck returns the number of due cards in a deck at `now`.
func (r *Repo) DueCountByDeck(ctx context.Context, deckID uuid.UUID, now time.Time) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, dueCountByDeckSQL, deckID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count due cards by deck: %w", err)
	}

	return count, nil
}

// CountByOwner returns the total number of cards across a user's decks.
func (r *Repo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countByOwnerSQL, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards by owner: %w", err)
	}

	return count, nil
}

// DueCountByOwner returns the number of due cards across a user's decks.
func (r *Repo) DueCountByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, dueCountByOwnerSQL, ownerID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count due cards by owner: %w", err)
	}

	return count, nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

// scanCard scans a single card row from pgx.Row.
func scanCard(row pgx.Row) (*domain.Card, error) {
	var c domain.Card
	if err := row.Scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// scanScheduling scans a single scheduling row from pgx.Row.
func scanScheduling(row pgx.Row) (*domain.CardScheduling, error) {
	var s domain.CardScheduling
	if err := row.Scan(
		&s.CardID, &s.EaseFactor, &s.IntervalDays, &s.Repetitions, &s.IncorrectCount,
		&s.TimedReviews, &s.TotalTimeMs, &s.AverageTimeMs, &s.Due, &s.LastReviewedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
