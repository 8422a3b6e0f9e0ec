package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/internal/service/study"
)

type studyService interface {
	StartSession(ctx context.Context, input study.StartSessionInput) (*study.SessionDetail, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*study.SessionDetail, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*domain.LearningSession, int, error)
	SubmitAnswer(ctx context.Context, input study.SubmitAnswerInput) (*study.SubmitResult, error)
	NextCard(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error)
	PreviousCard(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error)
	Complete(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error)
	Abandon(ctx context.Context, sessionID uuid.UUID) (*domain.LearningSession, error)
	CardHistory(ctx context.Context, cardID uuid.UUID) (*study.CardHistoryResult, error)
}

// SessionHandler serves learning session and review history endpoints.
type SessionHandler struct {
	svc studyService
	log *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc studyService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, log: logger.With("handler", "session")}
}

type startSessionRequest struct {
	DeckID string `json:"deckId"`
}

type submitAnswerRequest struct {
	CardID         string `json:"cardId"`
	Answer         string `json:"answer"`
	ResponseTimeMs *int   `json:"responseTimeMs"`
}

type sessionResponse struct {
	ID          string           `json:"id"`
	DeckID      string           `json:"deckId"`
	Status      string           `json:"status"`
	CursorIndex int              `json:"cursorIndex"`
	CardCount   int              `json:"cardCount"`
	StartedAt   time.Time        `json:"startedAt"`
	EndedAt     *time.Time       `json:"endedAt,omitempty"`
	Summary     *summaryResponse `json:"summary,omitempty"`
}

type summaryResponse struct {
	Correct         int   `json:"correct"`
	Incorrect       int   `json:"incorrect"`
	Total           int   `json:"total"`
	AccuracyPercent int   `json:"accuracyPercent"`
	DurationMs      int64 `json:"durationMs"`
}

type sessionDetailResponse struct {
	sessionResponse
	Cards    []cardResponse `json:"cards"`
	Answered []bool         `json:"answered"`
}

type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

type verdictResponse struct {
	IsCorrect       bool     `json:"isCorrect"`
	CanonicalAnswer string   `json:"canonicalAnswer"`
	Similarity      *float64 `json:"similarity,omitempty"`
	Category        string   `json:"category,omitempty"`
	Feedback        string   `json:"feedback,omitempty"`
}

type schedulingResponse struct {
	CardID         string     `json:"cardId"`
	EaseFactor     float64    `json:"easeFactor"`
	IntervalDays   int        `json:"intervalDays"`
	Repetitions    int        `json:"repetitions"`
	IncorrectCount int        `json:"incorrectCount"`
	Due            time.Time  `json:"due"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
}

type reviewRecordResponse struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	CardID         string    `json:"cardId"`
	IsCorrect      bool      `json:"isCorrect"`
	ResponseTimeMs *int      `json:"responseTimeMs,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type submitAnswerResponse struct {
	Verdict    verdictResponse      `json:"verdict"`
	Scheduling schedulingResponse   `json:"scheduling"`
	Record     reviewRecordResponse `json:"record"`
}

type cardHistoryResponse struct {
	Records    []reviewRecordResponse `json:"records"`
	Scheduling schedulingResponse     `json:"scheduling"`
	Difficulty string                 `json:"difficulty"`
}

// Start handles POST /api/sessions.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deckID, err := uuid.Parse(req.DeckID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deckId")
		return
	}

	detail, err := h.svc.StartSession(r.Context(), study.StartSessionInput{DeckID: deckID})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionDetailResponse(detail))
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionDetailResponse(detail))
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	sessions, total, err := h.svc.ListSessions(r.Context(), limit, offset)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := sessionListResponse{Sessions: make([]sessionResponse, 0, len(sessions)), Total: total}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SubmitAnswer handles POST /api/sessions/{id}/answers.
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req submitAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cardId")
		return
	}

	result, err := h.svc.SubmitAnswer(r.Context(), study.SubmitAnswerInput{
		SessionID:      id,
		CardID:         cardID,
		Answer:         req.Answer,
		ResponseTimeMs: req.ResponseTimeMs,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, submitAnswerResponse{
		Verdict:    toVerdictResponse(result.Verdict),
		Scheduling: toSchedulingResponse(result.Scheduling),
		Record:     toReviewRecordResponse(result.Record),
	})
}

// Next handles POST /api/sessions/{id}/next.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.cursorOp(w, r, h.svc.NextCard)
}

// Previous handles POST /api/sessions/{id}/previous.
func (h *SessionHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.cursorOp(w, r, h.svc.PreviousCard)
}

// Complete handles POST /api/sessions/{id}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.cursorOp(w, r, h.svc.Complete)
}

// Abandon handles POST /api/sessions/{id}/abandon.
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.cursorOp(w, r, h.svc.Abandon)
}

func (h *SessionHandler) cursorOp(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*domain.LearningSession, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	session, err := op(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// CardHistory handles GET /api/cards/{id}/history.
func (h *SessionHandler) CardHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.CardHistory(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := cardHistoryResponse{
		Records:    make([]reviewRecordResponse, 0, len(result.Records)),
		Scheduling: toSchedulingResponse(result.Scheduling),
		Difficulty: result.Difficulty.String(),
	}
	for _, rec := range result.Records {
		resp.Records = append(resp.Records, toReviewRecordResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toSessionResponse(s *domain.LearningSession) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID.String(),
		DeckID:      s.DeckID.String(),
		Status:      s.Status.String(),
		CursorIndex: s.CursorIndex,
		CardCount:   s.CardCount,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
	}
	if s.Summary != nil {
		resp.Summary = &summaryResponse{
			Correct:         s.Summary.Correct,
			Incorrect:       s.Summary.Incorrect,
			Total:           s.Summary.Total,
			AccuracyPercent: s.Summary.AccuracyPercent,
			DurationMs:      s.Summary.DurationMs,
		}
	}
	return resp
}

func toSessionDetailResponse(detail *study.SessionDetail) sessionDetailResponse {
	resp := sessionDetailResponse{
		sessionResponse: toSessionResponse(&detail.Session),
		Cards:           make([]cardResponse, 0, len(detail.Cards)),
		Answered:        detail.Answered,
	}
	for _, c := range detail.Cards {
		resp.Cards = append(resp.Cards, toCardResponse(c))
	}
	return resp
}

func toVerdictResponse(v domain.AnswerVerdict) verdictResponse {
	return verdictResponse{
		IsCorrect:       v.IsCorrect,
		CanonicalAnswer: v.CanonicalAnswer,
		Similarity:      v.Similarity,
		Category:        v.Category,
		Feedback:        v.Feedback,
	}
}

func toSchedulingResponse(s domain.CardScheduling) schedulingResponse {
	return schedulingResponse{
		CardID:         s.CardID.String(),
		EaseFactor:     s.EaseFactor,
		IntervalDays:   s.IntervalDays,
		Repetitions:    s.Repetitions,
		IncorrectCount: s.IncorrectCount,
		Due:            s.Due,
		LastReviewedAt: s.LastReviewedAt,
	}
}

func toReviewRecordResponse(rec domain.ReviewRecord) reviewRecordResponse {
	return reviewRecordResponse{
		ID:             rec.ID.String(),
		SessionID:      rec.SessionID.String(),
		CardID:         rec.CardID.String(),
		IsCorrect:      rec.IsCorrect,
		ResponseTimeMs: rec.ResponseTimeMs,
		CreatedAt:      rec.CreatedAt,
	}
}
