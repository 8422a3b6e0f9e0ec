package study

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// StartSessionInput holds parameters for starting a learning session.
type StartSessionInput struct {
	DeckID uuid.UUID
}

// Validate validates the start session input.
func (i StartSessionInput) Validate() error {
	var errs []domain.FieldError

	if i.DeckID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "deck_id", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// SubmitAnswerInput holds parameters for answering a card in a session.
type SubmitAnswerInput struct {
	SessionID      uuid.UUID
	CardID         uuid.UUID
	Answer         string
	ResponseTimeMs *int
}

// Validate validates the submit answer input.
func (i SubmitAnswerInput) Validate() error {
	var errs []domain.FieldError

	if i.SessionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "session_id", Message: "required"})
	}
	if i.CardID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "card_id", Message: "required"})
	}
	if utf8.RuneCountInString(i.Answer) > 10000 {
		errs = append(errs, domain.FieldError{Field: "answer", Message: "too long"})
	}
	if i.ResponseTimeMs != nil && *i.ResponseTimeMs <= 0 {
		errs = append(errs, domain.FieldError{Field: "response_time_ms", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
