// Package session implements the LearningSession repository using PostgreSQL.
// All queries use raw SQL since the summary column is JSONB requiring custom
// marshal/unmarshal logic, and session creation batches the card snapshot.
package session

import (
	"context"
	"encoding/json"
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

// Repo provides learning session persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new session repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const sessionColumns = `id, user_id, deck_id, status, cursor_index, card_count, started_at, ended_at, summary, created_at`

const createSQL = `
INSERT INTO learning_sessions (id, user_id, deck_id, status, cursor_index, card_count, started_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + sessionColumns

const insertCardSQL = `
INSERT INTO session_cards (session_id, card_id, position, front, back)
SELECT $1, id, $3, front, back
FROM cards
WHERE id = $2`

const getByIDSQL = `
SELECT ` + sessionColumns + `
FROM learning_sessions
WHERE id = $1 AND user_id = $2`

const getActiveSQL = `
SELECT ` + sessionColumns + `
FROM learning_sessions
WHERE user_id = $1 AND deck_id = $2 AND status = 'ACTIVE'`

const listByUserSQL = `
SELECT ` + sessionColumns + `
FROM learning_sessions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

const countByUserSQL = `
SELECT count(*) FROM learning_sessions WHERE user_id = $1`

const updateCursorSQL = `
UPDATE learning_sessions
SET cursor_index = $3
WHERE id = $1 AND user_id = $2 AND status = 'ACTIVE'
RETURNING ` + sessionColumns

const finishSQL = `
UPDATE learning_sessions
SET status = $4, ended_at = $5, summary = $3
WHERE id = $1 AND user_id = $2 AND status = 'ACTIVE'
RETURNING ` + sessionColumns

const cardsSQL = `
SELECT session_id, card_id, position, answered
FROM session_cards
WHERE session_id = $1
ORDER BY position ASC`

const cardContentsSQL = `
SELECT sc.card_id, ls.deck_id, sc.front, sc.back, sc.position,
       COALESCE(c.created_at, ls.started_at), COALESCE(c.updated_at, ls.started_at)
FROM session_cards sc
JOIN learning_sessions ls ON ls.id = sc.session_id
LEFT JOIN cards c ON c.id = sc.card_id
WHERE sc.session_id = $1
ORDER BY sc.position ASC`

const markAnsweredSQL = `
UPDATE session_cards
SET answered = true
WHERE session_id = $1 AND card_id = $2`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a session by primary key filtered by user_id.
// Returns domain.ErrNotFound if the session does not exist or belongs to
// another user.
func (r *Repo) GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*domain.LearningSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	session, err := scanSession(querier.QueryRow(ctx, getByIDSQL, sessionID, userID))
	if err != nil {
		return nil, mapError(err, "session", sessionID)
	}

	return session, nil
}

// GetActive returns the user's ACTIVE session for a deck.
// Returns domain.ErrNotFound if no active session exists.
func (r *Repo) GetActive(ctx context.Context, userID, deckID uuid.UUID) (*domain.LearningSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	session, err := scanSession(querier.QueryRow(ctx, getActiveSQL, userID, deckID))
	if err != nil {
		return nil, mapError(err, "session", uuid.Nil)
	}

	return session, nil
}

// ListByUser returns sessions for a user with pagination, newest first.
// Returns sessions, total count, and error.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.LearningSession, int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var total int
	if err := querier.QueryRow(ctx, countByUserSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions by user: %w", err)
	}

	rows, err := querier.Query(ctx, listByUserSQL, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions by user: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions by user: %w", err)
	}

	return sessions, total, nil
}

// CountByUser returns the total number of sessions the user has started.
func (r *Repo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var n int
	if err := querier.QueryRow(ctx, countByUserSQL, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions by user: %w", err)
	}

	return n, nil
}

// Cards returns the session's card snapshot in presentation order.
func (r *Repo) Cards(ctx context.Context, sessionID uuid.UUID) ([]domain.SessionCard, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, cardsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.SessionCard{}
	for rows.Next() {
		var sc domain.SessionCard
		if err := rows.Scan(&sc.SessionID, &sc.CardID, &sc.Position, &sc.Answered); err != nil {
			return nil, fmt.Errorf("scan session card: %w", err)
		}
		cards = append(cards, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session cards: %w", err)
	}

	return cards, nil
}

// CardContents returns the full cards of the session snapshot in
// presentation order. Faces come from the snapshot itself, so cards edited
// or deleted from the deck since the session started keep their content at
// session start.
func (r *Repo) CardContents(ctx context.Context, sessionID uuid.UUID) ([]domain.Card, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, cardContentsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session card contents: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID, &c.DeckID, &c.Front, &c.Back, &c.Position, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session card content: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session card contents: %w", err)
	}

	return cards, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new session together with its card snapshot. The snapshot
// positions follow the order of cardIDs and each row copies the card's
// front/back, so the session's card list is fixed at creation. A partial
// unique index allows only one ACTIVE session per (user, deck); violating it
// maps to domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, session *domain.LearningSession, cardIDs []uuid.UUID) (*domain.LearningSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	startedAt := session.StartedAt.UTC().Truncate(time.Microsecond)

	row := querier.QueryRow(ctx, createSQL,
		session.ID,
		session.UserID,
		session.DeckID,
		string(session.Status),
		session.CursorIndex,
		len(cardIDs),
		startedAt,
		now,
	)

	created, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "session", session.ID)
	}

	batch := &pgx.Batch{}
	for i, cardID := range cardIDs {
		batch.Queue(insertCardSQL, session.ID, cardID, i)
	}
	results := querier.SendBatch(ctx, batch)
	defer results.Close()

	for _, cardID := range cardIDs {
		ct, err := results.Exec()
		if err != nil {
			return nil, mapError(err, "session_card", session.ID)
		}
		// The insert copies front/back from cards; zero rows means the card
		// vanished between listing and snapshotting.
		if ct.RowsAffected() == 0 {
			return nil, fmt.Errorf("session_card %s: %w", cardID, domain.ErrNotFound)
		}
	}

	return created, nil
}

// UpdateCursor moves the session cursor to the given index.
// Returns domain.ErrNotFound if the session does not exist, belongs to
// another user, or is not ACTIVE.
func (r *Repo) UpdateCursor(ctx context.Context, userID, sessionID uuid.UUID, cursor int) (*domain.LearningSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	session, err := scanSession(querier.QueryRow(ctx, updateCursorSQL, sessionID, userID, cursor))
	if err != nil {
		return nil, mapError(err, "session", sessionID)
	}

	return session, nil
}

// MarkAnswered flags a session card as answered.
func (r *Repo) MarkAnswered(ctx context.Context, sessionID, cardID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	ct, err := querier.Exec(ctx, markAnsweredSQL, sessionID, cardID)
	if err != nil {
		return mapError(err, "session_card", sessionID)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("session_card %s: %w", sessionID, domain.ErrNotFound)
	}

	return nil
}

// Finish moves an ACTIVE session to the given terminal status (COMPLETED or
// ABANDONED), stamping ended_at and storing the summary.
// Returns domain.ErrNotFound if the session does not exist, belongs to
// another user, or is not ACTIVE.
func (r *Repo) Finish(ctx context.Context, userID, sessionID uuid.UUID, status domain.SessionStatus, summary domain.SessionSummary, endedAt time.Time) (*domain.LearningSession, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	summaryBytes, err := marshalSummary(&summary)
	if err != nil {
		return nil, fmt.Errorf("session %s: marshal summary: %w", sessionID, err)
	}

	row := querier.QueryRow(ctx, finishSQL,
		sessionID, userID, summaryBytes, string(status), endedAt.UTC().Truncate(time.Microsecond),
	)

	finished, err := scanSession(row)
	if err != nil {
		return nil, mapError(err, "session", sessionID)
	}

	return finished, nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

// scanSession scans a single session row from pgx.Row.
func scanSession(row pgx.Row) (*domain.LearningSession, error) {
	var (
		s           domain.LearningSession
		status      string
		endedAt     *time.Time
		summaryJSON []byte
	)

	if err := row.Scan(
		&s.ID, &s.UserID, &s.DeckID, &status, &s.CursorIndex, &s.CardCount,
		&s.StartedAt, &endedAt, &summaryJSON, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	s.Status = domain.SessionStatus(status)
	s.EndedAt = endedAt

	summary, err := unmarshalSummary(summaryJSON)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}
	s.Summary = summary

	return &s, nil
}

// scanSessions scans multiple session rows from pgx.Rows.
func scanSessions(rows pgx.Rows) ([]*domain.LearningSession, error) {
	sessions := []*domain.LearningSession{}
	for rows.Next() {
		var (
			s           domain.LearningSession
			status      string
			endedAt     *time.Time
			summaryJSON []byte
		)

		if err := rows.Scan(
			&s.ID, &s.UserID, &s.DeckID, &status, &s.CursorIndex, &s.CardCount,
			&s.StartedAt, &endedAt, &summaryJSON, &s.CreatedAt,
		); err != nil {
			return nil, err
		}

		s.Status = domain.SessionStatus(status)
		s.EndedAt = endedAt

		summary, err := unmarshalSummary(summaryJSON)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		s.Summary = summary

		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// ---------------------------------------------------------------------------
// JSONB serialization helpers for SessionSummary
// ---------------------------------------------------------------------------

// sessionSummaryJSON is an intermediate struct for JSON marshaling of
// domain.SessionSummary. Domain types have no json tags, so the repo layer
// handles serialization.
type sessionSummaryJSON struct {
	Correct         int   `json:"correct"`
	Incorrect       int   `json:"incorrect"`
	Total           int   `json:"total"`
	AccuracyPercent int   `json:"accuracy_percent"`
	DurationMs      int64 `json:"duration_ms"`
}

// marshalSummary converts a *domain.SessionSummary to JSON bytes for JSONB
// storage. Returns nil for nil input (stored as NULL in DB).
func marshalSummary(s *domain.SessionSummary) ([]byte, error) {
	if s == nil {
		return nil, nil
	}

	return json.Marshal(sessionSummaryJSON{
		Correct:         s.Correct,
		Incorrect:       s.Incorrect,
		Total:           s.Total,
		AccuracyPercent: s.AccuracyPercent,
		DurationMs:      s.DurationMs,
	})
}

// unmarshalSummary converts JSON bytes from JSONB storage to a
// *domain.SessionSummary. Returns nil for nil/empty input (NULL in DB).
func unmarshalSummary(data []byte) (*domain.SessionSummary, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var j sessionSummaryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session summary: %w", err)
	}

	return &domain.SessionSummary{
		Correct:         j.Correct,
		Incorrect:       j.Incorrect,
		Total:           j.Total,
		AccuracyPercent: j.AccuracyPercent,
		DurationMs:      j.DurationMs,
	}, nil
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
