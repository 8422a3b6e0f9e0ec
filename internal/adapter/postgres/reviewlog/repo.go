// Package reviewlog implements the append-only review record log using
// PostgreSQL. Records are immutable once written; all statistics are
// derived from them with aggregate queries.
package reviewlog

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

// Repo provides review record persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new review log repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const recordColumns = `id, session_id, card_id, is_correct, response_time_ms, created_at`

const createSQL = `
INSERT INTO review_records (id, session_id, card_id, is_correct, response_time_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + recordColumns

const historyForCardSQL = `
SELECT ` + recordColumns + `
FROM review_records
WHERE card_id = $1
ORDER BY created_at ASC, id ASC`

const existsInSessionSQL = `
SELECT EXISTS (
    SELECT 1 FROM review_records
    WHERE session_id = $1 AND card_id = $2
)`

const sessionCountsSQL = `
SELECT
    count(*) FILTER (WHERE is_correct) AS correct,
    count(*) FILTER (WHERE NOT is_correct) AS incorrect
FROM review_records
WHERE session_id = $1`

const recentByUserSQL = `
SELECT rr.id, rr.session_id, rr.card_id, rr.is_correct, rr.response_time_ms, rr.created_at
FROM review_records rr
JOIN learning_sessions ls ON rr.session_id = ls.id
WHERE ls.user_id = $1
ORDER BY rr.created_at DESC, rr.id DESC
LIMIT $2`

const countByUserSQL = `
SELECT count(*)
FROM review_records rr
JOIN learning_sessions ls ON rr.session_id = ls.id
WHERE ls.user_id = $1`

const streakDaysSQL = `
SELECT
    date_trunc('day', rr.created_at)::date AS review_date,
    count(*) AS review_count
FROM review_records rr
JOIN learning_sessions ls ON rr.session_id = ls.id
WHERE ls.user_id = $1 AND rr.created_at >= $2
GROUP BY review_date
ORDER BY review_date DESC
LIMIT $3`

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create appends a new review record and returns the persisted record.
func (r *Repo) Create(ctx context.Context, rec *domain.ReviewRecord) (*domain.ReviewRecord, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, createSQL,
		rec.ID, rec.SessionID, rec.CardID, rec.IsCorrect, rec.ResponseTimeMs, rec.CreatedAt,
	)

	created, err := scanRecord(row)
	if err != nil {
		return nil, mapError(err, "review_record", rec.ID)
	}

	return created, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// HistoryForCard returns every review of a card in insertion order,
// oldest first. Replaying this history reproduces the card's scheduling
// state exactly.
func (r *Repo) HistoryForCard(ctx context.Context, cardID uuid.UUID) ([]domain.ReviewRecord, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, historyForCardSQL, cardID)
	if err != nil {
		return nil, fmt.Errorf("get review history for card: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ExistsInSession reports whether the card already has a review record in
// the given session. Used to reject duplicate answer submissions.
func (r *Repo) ExistsInSession(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := querier.QueryRow(ctx, existsInSessionSQL, sessionID, cardID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check review exists in session: %w", err)
	}

	return exists, nil
}

// SessionCounts returns the correct/incorrect review totals of a session.
// A session with no reviews yields (0, 0).
func (r *Repo) SessionCounts(ctx context.Context, sessionID uuid.UUID) (correct, incorrect int, err error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	if err := querier.QueryRow(ctx, sessionCountsSQL, sessionID).Scan(&correct, &incorrect); err != nil {
		return 0, 0, fmt.Errorf("count session reviews: %w", err)
	}

	return correct, incorrect, nil
}

// RecentByUser returns the user's last `limit` review records, newest first.
func (r *Repo) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ReviewRecord, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, recentByUserSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent reviews by user: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountByUser returns the total number of reviews a user has ever submitted.
func (r *Repo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, countByUserSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews by user: %w", err)
	}

	return count, nil
}

// StreakDays returns daily review counts grouped by day, ordered by date
// DESC, limited to lastNDays entries counting back from dayStart.
func (r *Repo) StreakDays(ctx context.Context, userID uuid.UUID, dayStart time.Time, lastNDays int) ([]domain.DayReviewCount, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	from := dayStart.AddDate(0, 0, -lastNDays)

	rows, err := querier.Query(ctx, streakDaysSQL, userID, from, lastNDays)
	if err != nil {
		return nil, fmt.Errorf("get streak days: %w", err)
	}
	defer rows.Close()

	counts := []domain.DayReviewCount{}
	for rows.Next() {
		var dc domain.DayReviewCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan streak day: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streak days: %w", err)
	}

	return counts, nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

// scanRecord scans a single review record row from pgx.Row.
func scanRecord(row pgx.Row) (*domain.ReviewRecord, error) {
	var rec domain.ReviewRecord
	if err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.CardID, &rec.IsCorrect, &rec.ResponseTimeMs, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

// scanRecords scans multiple review record rows from pgx.Rows.
func scanRecords(rows pgx.Rows) ([]domain.ReviewRecord, error) {
	records := []domain.ReviewRecord{}
	for rows.Next() {
		var rec domain.ReviewRecord
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.CardID, &rec.IsCorrect, &rec.ResponseTimeMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review_record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review_records: %w", err)
	}

	return records, nil
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
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
