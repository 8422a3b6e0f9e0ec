package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// StartSession starts a learning session over the deck's due cards, or
// returns the existing ACTIVE session for that deck (idempotent). The card
// snapshot is fixed at creation; deck edits never change it.
func (s *Service) StartSession(ctx context.Context, input StartSessionInput) (*SessionDetail, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("study.StartSession: %w", err)
	}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.StartSession: %w", domain.ErrUnauthorized)
	}

	deck, err := s.decks.GetByID(ctx, input.DeckID)
	if err != nil {
		return nil, fmt.Errorf("study.StartSession: %w", err)
	}
	// Studying mutates per-card scheduling state, so sessions are owner-only
	// even on public decks.
	if deck.OwnerID != userID {
		return nil, fmt.Errorf("study.StartSession: %w", domain.ErrForbidden)
	}

	existing, err := s.sessions.GetActive(ctx, userID, input.DeckID)
	if err == nil {
		s.log.InfoContext(ctx, "returning existing session",
			"user_id", userID, "session_id", existing.ID)
		return s.sessionDetail(ctx, existing)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("study.StartSession: check active session: %w", err)
	}

	now := s.now()
	dueIDs, err := s.cards.ListDueIDs(ctx, input.DeckID, now, s.cfg.SessionCardLimit)
	if err != nil {
		return nil, fmt.Errorf("study.StartSession: list due cards: %w", err)
	}
	if len(dueIDs) == 0 {
		return nil, fmt.Errorf("study.StartSession: %w",
			domain.NewValidationError("deck_id", "no cards due for review"))
	}

	session := &domain.LearningSession{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    input.DeckID,
		Status:    domain.SessionStatusActive,
		StartedAt: now,
	}

	// The session row and its snapshot must land together, otherwise a
	// mid-snapshot failure pins a broken ACTIVE session under the partial
	// unique index.
	var created *domain.LearningSession
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		created, txErr = s.sessions.Create(ctx, session, dueIDs)
		return txErr
	})
	if err != nil {
		// Race: another request created the session between check and create.
		if errors.Is(err, domain.ErrAlreadyExists) {
			existing, getErr := s.sessions.GetActive(ctx, userID, input.DeckID)
			if getErr != nil {
				return nil, fmt.Errorf("study.StartSession: get active after race: %w", getErr)
			}
			return s.sessionDetail(ctx, existing)
		}
		return nil, fmt.Errorf("study.StartSession: create session: %w", err)
	}

	s.log.InfoContext(ctx, "session started",
		"user_id", userID, "session_id", created.ID, "cards", len(dueIDs))

	return s.sessionDetail(ctx, created)
}

// GetSession returns the session with its card snapshot.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionDetail, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.GetSession: %w", domain.ErrUnauthorized)
	}

	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("study.GetSession: %w", err)
	}

	return s.sessionDetail(ctx, session)
}

// ListSessions returns a page of the user's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]*domain.LearningSession, int, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, 0, fmt.Errorf("study.ListSessions: %w", domain.ErrUnauthorized)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	sessions, total, err := s.sessions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("study.ListSessions: %w", err)
	}

	return sessions, total, nil
}

// NextCard advances the cursor. Moving past the last card completes the
// session. Returns ErrConflict for finished sessions.
func (s *Service) NextCard(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.NextCard: %w", domain.ErrUnauthorized)
	}

	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("study.NextCard: %w", err)
	}
	if session.Status.IsTerminal() {
		return nil, fmt.Errorf("study.NextCard: session already finished: %w", domain.ErrConflict)
	}

	next := session.CursorIndex + 1
	if next >= session.CardCount {
		return s.finish(ctx, userID, session, domain.SessionStatusCompleted)
	}

	updated, err := s.sessions.UpdateCursor(ctx, userID, sessionID, next)
	if err != nil {
		return nil, fmt.Errorf("study.NextCard: %w", mapFinishRace(err))
	}

	return updated, nil
}

// PreviousCard moves the cursor back one card. At the first card it is a
// no-op. Returns ErrConflict for finished sessions.
func (s *Service) PreviousCard(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.PreviousCard: %w", domain.ErrUnauthorized)
	}

	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("study.PreviousCard: %w", err)
	}
	if session.Status.IsTerminal() {
		return nil, fmt.Errorf("study.PreviousCard: session already finished: %w", domain.ErrConflict)
	}

	if session.CursorIndex == 0 {
		return session, nil
	}

	updated, err := s.sessions.UpdateCursor(ctx, userID, sessionID, session.CursorIndex-1)
	if err != nil {
		return nil, fmt.Errorf("study.PreviousCard: %w", mapFinishRace(err))
	}

	return updated, nil
}

// Complete finalizes the session as COMPLETED, stamping ended_at and the
// summary. Returns ErrConflict if the session is already finished.
func (s *Service) Complete(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error) {
	return s.finalize(ctx, sessionID, domain.SessionStatusCompleted)
}

// Abandon finalizes the session as ABANDONED. The summary still covers the
// reviews that were submitted before giving up.
func (s *Service) Abandon(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error) {
	return s.finalize(ctx, sessionID, domain.SessionStatusAbandoned)
}

func (s *Service) finalize(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus) (*domain.LearningSession, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.finalize: %w", domain.ErrUnauthorized)
	}

	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("study.finalize: %w", err)
	}
	if session.Status.IsTerminal() {
		return nil, fmt.Errorf("study.finalize: session already finished: %w", domain.ErrConflict)
	}

	return s.finish(ctx, userID, session, status)
}

// finish moves an ACTIVE session to a terminal status with its computed
// summary. The guarded UPDATE makes concurrent finalizes safe: the loser
// sees ErrConflict.
func (s *Service) finish(ctx context.Context, userID uuid.UUID, session *domain.LearningSession, status domain.SessionStatus) (*domain.LearningSession, error) {
	correct, incorrect, err := s.reviews.SessionCounts(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("study.finish: %w", err)
	}

	endedAt := s.now()
	summary := domain.Summarize(correct, incorrect, session.StartedAt, endedAt)

	finished, err := s.sessions.Finish(ctx, userID, session.ID, status, summary, endedAt)
	if err != nil {
		return nil, fmt.Errorf("study.finish: %w", mapFinishRace(err))
	}

	s.log.InfoContext(ctx, "session finished",
		"session_id", session.ID, "status", status, "accuracy", summary.AccuracyPercent)

	return finished, nil
}

// mapFinishRace converts the guarded update's NotFound (session left ACTIVE
// between read and write) into a conflict.
func mapFinishRace(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrConflict
	}
	return err
}

// sessionDetail loads the card snapshot for a session.
func (s *Service) sessionDetail(ctx context.Context, session *domain.LearningSession) (*SessionDetail, error) {
	cards, err := s.sessions.CardContents(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get session cards: %w", err)
	}

	snapshot, err := s.sessions.Cards(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get session snapshot: %w", err)
	}

	answered := make([]bool, len(snapshot))
	for i, sc := range snapshot {
		answered[i] = sc.Answered
	}

	return &SessionDetail{Session: *session, Cards: cards, Answered: answered}, nil
}
