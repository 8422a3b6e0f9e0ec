package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

func TestHandleError_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("title", "required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("deck.CreateDeck: %w", domain.ErrValidation), http.StatusBadRequest},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"already exists", domain.ErrAlreadyExists, http.StatusConflict},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"timeout", domain.ErrTimeout, http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("pg connection lost"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			handleError(rec, req, slog.Default(), tc.err)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestHandleError_ValidationFields(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	err := domain.NewValidationErrors([]domain.FieldError{
		{Field: "front", Message: "cannot be blank"},
		{Field: "back", Message: "too long"},
	})
	handleError(rec, req, slog.Default(), err)

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(resp.Fields))
	}
	if resp.Fields[0].Field != "front" || resp.Fields[1].Message != "too long" {
		t.Errorf("fields = %+v, want front/back details", resp.Fields)
	}
}

func TestHandleError_TimeoutMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handleError(rec, req, slog.Default(), fmt.Errorf("deck.GenerateDeck: %w", domain.ErrTimeout))

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "the AI provider took too long to respond" {
		t.Errorf("error = %q, want the provider timeout message", resp.Error)
	}
}
