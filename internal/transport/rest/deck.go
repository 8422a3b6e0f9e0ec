package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/internal/service/deck"
)

type deckService interface {
	CreateDeck(ctx context.Context, input deck.CreateDeckInput) (*domain.Deck, error)
	GetDeck(ctx context.Context, deckID uuid.UUID) (*deck.DeckDetailResult, error)
	ListDecks(ctx context.Context, input deck.ListDecksInput) (*deck.DeckPage, error)
	UpdateDeck(ctx context.Context, deckID uuid.UUID, input deck.UpdateDeckInput) (*domain.Deck, error)
	DeleteDeck(ctx context.Context, deckID uuid.UUID) error
	Stats(ctx context.Context, deckID uuid.UUID) (*domain.DeckStats, error)
	GenerateDeck(ctx context.Context, input deck.GenerateDeckInput) (*deck.DeckDetailResult, error)
	AddCard(ctx context.Context, deckID uuid.UUID, input deck.CreateCardInput) (*domain.Card, error)
	UpdateCard(ctx context.Context, cardID uuid.UUID, input deck.UpdateCardInput) (*domain.Card, error)
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
}

// DeckHandler serves deck and card REST endpoints.
type DeckHandler struct {
	svc deckService
	log *slog.Logger
}

// NewDeckHandler creates a DeckHandler.
func NewDeckHandler(svc deckService, logger *slog.Logger) *DeckHandler {
	return &DeckHandler{svc: svc, log: logger.With("handler", "deck")}
}

type createDeckRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type updateDeckRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

type generateDeckRequest struct {
	Prompt     string `json:"prompt"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
	CardCount  int    `json:"cardCount"`
}

type cardFacesRequest struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

type deckResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type deckSummaryResponse struct {
	deckResponse
	CardCount int    `json:"cardCount"`
	DueCount  int    `json:"dueCount"`
	Status    string `json:"status"`
}

type deckListResponse struct {
	Decks []deckSummaryResponse `json:"decks"`
	Total int                   `json:"total"`
}

type deckDetailResponse struct {
	deckResponse
	Cards []cardResponse `json:"cards"`
}

type cardResponse struct {
	ID            string    `json:"id"`
	DeckID        string    `json:"deckId"`
	Front         string    `json:"front"`
	Back          string    `json:"back"`
	RenderedFront string    `json:"renderedFront,omitempty"`
	RenderedBack  string    `json:"renderedBack,omitempty"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type deckStatsResponse struct {
	DeckID          string         `json:"deckId"`
	CardCount       int            `json:"cardCount"`
	DueCount        int            `json:"dueCount"`
	Status          string         `json:"status"`
	AverageEase     float64        `json:"averageEase"`
	TotalReviews    int            `json:"totalReviews"`
	AccuracyPercent int            `json:"accuracyPercent"`
	Difficulty      map[string]int `json:"difficulty"`
}

// List handles GET /api/decks.
func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	input := deck.ListDecksInput{
		Search:        q.Get("search"),
		IncludePublic: q.Get("includePublic") == "true",
	}
	if s := q.Get("status"); s != "" {
		status := domain.DeckStatus(s)
		input.Status = &status
	}
	input.Limit, _ = strconv.Atoi(q.Get("limit"))
	input.Offset, _ = strconv.Atoi(q.Get("offset"))

	page, err := h.svc.ListDecks(r.Context(), input)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := deckListResponse{Decks: make([]deckSummaryResponse, 0, len(page.Decks)), Total: page.Total}
	for _, d := range page.Decks {
		resp.Decks = append(resp.Decks, deckSummaryResponse{
			deckResponse: toDeckResponse(d.Deck),
			CardCount:    d.CardCount,
			DueCount:     d.DueCount,
			Status:       d.Status.String(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/decks.
func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := h.svc.CreateDeck(r.Context(), deck.CreateDeckInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeckResponse(*d))
}

// Get handles GET /api/decks/{id}.
func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.GetDeck(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckDetailResponse(detail))
}

// Update handles PATCH /api/decks/{id}.
func (h *DeckHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := h.svc.UpdateDeck(r.Context(), id, deck.UpdateDeckInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckResponse(*d))
}

// Delete handles DELETE /api/decks/{id}.
func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteDeck(r.Context(), id); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/decks/{id}/stats.
func (h *DeckHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, deckStatsResponse{
		DeckID:          stats.DeckID.String(),
		CardCount:       stats.CardCount,
		DueCount:        stats.DueCount,
		Status:          stats.Status.String(),
		AverageEase:     stats.AverageEase,
		TotalReviews:    stats.TotalReviews,
		AccuracyPercent: stats.AccuracyPercent,
		Difficulty: map[string]int{
			domain.DifficultyEasy.String():   stats.Difficulty.Easy,
			domain.DifficultyMedium.String(): stats.Difficulty.Medium,
			domain.DifficultyHard.String():   stats.Difficulty.Hard,
		},
	})
}

// Generate handles POST /api/decks/generate.
func (h *DeckHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateDeckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	detail, err := h.svc.GenerateDeck(r.Context(), deck.GenerateDeckInput{
		Prompt:     req.Prompt,
		Language:   req.Language,
		Difficulty: req.Difficulty,
		CardCount:  req.CardCount,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeckDetailResponse(detail))
}

// AddCard handles POST /api/decks/{id}/cards.
func (h *DeckHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req cardFacesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input := deck.CreateCardInput{}
	if req.Front != nil {
		input.Front = *req.Front
	}
	if req.Back != nil {
		input.Back = *req.Back
	}

	c, err := h.svc.AddCard(r.Context(), id, input)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCardResponse(*c))
}

// UpdateCard handles PATCH /api/cards/{id}.
func (h *DeckHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req cardFacesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.svc.UpdateCard(r.Context(), id, deck.UpdateCardInput{
		Front: req.Front,
		Back:  req.Back,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toCardResponse(*c))
}

// DeleteCard handles DELETE /api/cards/{id}.
func (h *DeckHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteCard(r.Context(), id); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toDeckResponse(d domain.Deck) deckResponse {
	return deckResponse{
		ID:          d.ID.String(),
		Title:       d.Title,
		Description: d.Description,
		IsPublic:    d.IsPublic,
		OwnerID:     d.OwnerID.String(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toDeckDetailResponse(detail *deck.DeckDetailResult) deckDetailResponse {
	resp := deckDetailResponse{
		deckResponse: toDeckResponse(detail.Deck),
		Cards:        make([]cardResponse, 0, len(detail.Cards)),
	}
	for _, c := range detail.Cards {
		card := toCardResponse(c.Card)
		card.RenderedFront = c.RenderedFront
		card.RenderedBack = c.RenderedBack
		resp.Cards = append(resp.Cards, card)
	}
	return resp
}

func toCardResponse(c domain.Card) cardResponse {
	return cardResponse{
		ID:        c.ID.String(),
		DeckID:    c.DeckID.String(),
		Front:     c.Front,
		Back:      c.Back,
		Position:  c.Position,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
