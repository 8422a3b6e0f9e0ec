// Package deck implements the Deck repository using PostgreSQL.
// The filtered list query is built dynamically with squirrel; everything
// else is raw SQL.
package deck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/flashdeck-backend/internal/adapter/postgres"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// Repo provides deck persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new deck repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// psql builds queries with $n placeholders for PostgreSQL.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const deckColumns = `id, owner_id, title, description, is_public, created_at, updated_at`

const createSQL = `
INSERT INTO decks (id, owner_id, title, description, is_public, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + deckColumns

const getByIDSQL = `
SELECT ` + deckColumns + `
FROM decks
WHERE id = $1`

const updateSQL = `
UPDATE decks
SET title       = coalesce($2, title),
    description = coalesce($3, description),
    is_public   = coalesce($4, is_public),
    updated_at  = now()
WHERE id = $1
RETURNING ` + deckColumns

const deleteSQL = `DELETE FROM decks WHERE id = $1`

const countByOwnerSQL = `SELECT count(*) FROM decks WHERE owner_id = $1`

// dueCondition marks a card as due: never reviewed (no scheduling row)
// or its due timestamp has passed.
const dueCondition = `(cs.card_id IS NULL OR cs.due <= ?)`

const statsSQL = `
SELECT
    count(c.id) AS card_count,
    count(c.id) FILTER (WHERE cs.card_id IS NULL OR cs.due <= $2) AS due_count,
    coalesce(avg(coalesce(cs.ease_factor, $3)), $3) AS average_ease,
    count(c.id) FILTER (WHERE coalesce(cs.ease_factor, $3) >= 3.0) AS easy_count,
    count(c.id) FILTER (WHERE coalesce(cs.ease_factor, $3) >= 2.0 AND coalesce(cs.ease_factor, $3) < 3.0) AS medium_count,
    count(c.id) FILTER (WHERE coalesce(cs.ease_factor, $3) < 2.0) AS hard_count
FROM cards c
LEFT JOIN card_scheduling cs ON cs.card_id = c.id
WHERE c.deck_id = $1`

const reviewStatsSQL = `
SELECT
    count(*) AS total_reviews,
    count(*) FILTER (WHERE rr.is_correct) AS correct_reviews
FROM review_records rr
JOIN cards c ON rr.card_id = c.id
WHERE c.deck_id = $1`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a deck by primary key.
// Ownership and visibility checks belong to the service layer.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	d, err := scanDeck(querier.QueryRow(ctx, getByIDSQL, id))
	if err != nil {
		return nil, mapError(err, "deck", id)
	}

	return d, nil
}

// ListSummaries returns the owner's decks with derived card and due counts,
// applying the filter. The summary Status field is filled by the caller from
// DueCount. Returns summaries, total matching count, and error.
func (r *Repo) ListSummaries(ctx context.Context, ownerID uuid.UUID, filter domain.DeckFilter, now time.Time) ([]domain.DeckSummary, int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	base := psql.Select(
		"d.id", "d.owner_id", "d.title", "d.description", "d.is_public", "d.created_at", "d.updated_at",
		"count(c.id) AS card_count",
	).
		Column(squirrel.Expr("count(c.id) FILTER (WHERE "+dueCondition+") AS due_count", now)).
		From("decks d").
		LeftJoin("cards c ON c.deck_id = d.id").
		LeftJoin("card_scheduling cs ON cs.card_id = c.id").
		GroupBy("d.id")

	if filter.IncludePublic {
		base = base.Where(squirrel.Or{
			squirrel.Eq{"d.owner_id": ownerID},
			squirrel.Eq{"d.is_public": true},
		})
	} else {
		base = base.Where(squirrel.Eq{"d.owner_id": ownerID})
	}

	if filter.Search != "" {
		base = base.Where(squirrel.ILike{"d.title": "%" + filter.Search + "%"})
	}

	if filter.Status != nil {
		having := "count(c.id) FILTER (WHERE " + dueCondition + ")"
		switch *filter.Status {
		case domain.DeckStatusLearned:
			base = base.Having(having+" = 0", now)
		case domain.DeckStatusDueSoon:
			base = base.Having(having+" BETWEEN 1 AND 5", now)
		case domain.DeckStatusOverdue:
			base = base.Having(having+" > 5", now)
		}
	}

	countSQL, countArgs, err := psql.Select("count(*)").
		FromSelect(base, "filtered").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build deck count query: %w", err)
	}

	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count decks: %w", err)
	}

	page := base.OrderBy("d.updated_at DESC")
	if filter.Limit > 0 {
		page = page.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		page = page.Offset(uint64(filter.Offset))
	}

	listSQL, listArgs, err := page.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build deck list query: %w", err)
	}

	rows, err := querier.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	summaries := []domain.DeckSummary{}
	for rows.Next() {
		var s domain.DeckSummary
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Title, &s.Description, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt,
			&s.CardCount, &s.DueCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan deck summary: %w", err)
		}
		s.Status = domain.DeckStatusFor(s.DueCount)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate deck summaries: %w", err)
	}

	return summaries, total, nil
}

// Stats returns the aggregated learning statistics for a deck: card and due
// counts, average ease (defaultEase stands in for never-reviewed cards),
// difficulty distribution, and review accuracy.
func (r *Repo) Stats(ctx context.Context, deckID uuid.UUID, now time.Time, defaultEase float64) (*domain.DeckStats, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	stats := domain.DeckStats{DeckID: deckID}

	err := querier.QueryRow(ctx, statsSQL, deckID, now, defaultEase).Scan(
		&stats.CardCount, &stats.DueCount, &stats.AverageEase,
		&stats.Difficulty.Easy, &stats.Difficulty.Medium, &stats.Difficulty.Hard,
	)
	if err != nil {
		return nil, mapError(err, "deck", deckID)
	}

	var correct int
	if err := querier.QueryRow(ctx, reviewStatsSQL, deckID).Scan(&stats.TotalReviews, &correct); err != nil {
		return nil, mapError(err, "deck", deckID)
	}
	if stats.TotalReviews > 0 {
		stats.AccuracyPercent = int(float64(correct)/float64(stats.TotalReviews)*100 + 0.5)
	}

	stats.Status = domain.DeckStatusFor(stats.DueCount)

	return &stats, nil
}

// CountByOwner returns the number of decks owned by the user.
func (r *Repo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var n int
	if err := querier.QueryRow(ctx, countByOwnerSQL, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count decks: %w", err)
	}

	return n, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new deck and returns the persisted domain.Deck.
func (r *Repo) Create(ctx context.Context, d *domain.Deck) (*domain.Deck, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, createSQL,
		d.ID, d.OwnerID, d.Title, d.Description, d.IsPublic, d.CreatedAt, d.UpdatedAt,
	)

	created, err := scanDeck(row)
	if err != nil {
		return nil, mapError(err, "deck", d.ID)
	}

	return created, nil
}

// Update modifies title, description, and is_public for the given deck.
// Nil fields are left unchanged (coalesce in SQL).
func (r *Repo) Update(ctx context.Context, id uuid.UUID, title, description *string, isPublic *bool) (*domain.Deck, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	d, err := scanDeck(querier.QueryRow(ctx, updateSQL, id, title, description, isPublic))
	if err != nil {
		return nil, mapError(err, "deck", id)
	}

	return d, nil
}

// Delete removes a deck by ID. Cards, scheduling state, and review records
// cascade at the database level.
// Returns domain.ErrNotFound if 0 rows affected.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	ct, err := querier.Exec(ctx, deleteSQL, id)
	if err != nil {
		return mapError(err, "deck", id)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("deck %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

// scanDeck scans a single deck row from pgx.Row.
func scanDeck(row pgx.Row) (*domain.Deck, error) {
	var d domain.Deck
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.IsPublic, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
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
