package deck

import (
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxCardFaceLen    = 10000
)

// CreateDeckInput holds parameters for deck creation.
type CreateDeckInput struct {
	Title       string
	Description string
	IsPublic    bool
}

// Validate validates the create deck input.
func (i CreateDeckInput) Validate() error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.Title) == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	} else if utf8.RuneCountInString(i.Title) > maxTitleLen {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long"})
	}

	if utf8.RuneCountInString(i.Description) > maxDescriptionLen {
		errs = append(errs, domain.FieldError{Field: "description", Message: "too long"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UpdateDeckInput holds parameters for deck update.
// All fields are optional (nil = don't change).
type UpdateDeckInput struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

// Validate validates the update deck input.
func (i UpdateDeckInput) Validate() error {
	var errs []domain.FieldError

	if i.Title != nil {
		if strings.TrimSpace(*i.Title) == "" {
			errs = append(errs, domain.FieldError{Field: "title", Message: "cannot be blank"})
		} else if utf8.RuneCountInString(*i.Title) > maxTitleLen {
			errs = append(errs, domain.FieldError{Field: "title", Message: "too long"})
		}
	}

	if i.Description != nil && utf8.RuneCountInString(*i.Description) > maxDescriptionLen {
		errs = append(errs, domain.FieldError{Field: "description", Message: "too long"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListDecksInput holds parameters for the deck list operation.
type ListDecksInput struct {
	Search        string
	Status        *domain.DeckStatus
	IncludePublic bool
	Limit         int
	Offset        int
}

// Validate validates the list input and normalizes pagination defaults.
func (i *ListDecksInput) Validate() error {
	var errs []domain.FieldError

	if i.Limit < 0 || i.Limit > 100 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be between 0 and 100"})
	}
	if i.Offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must not be negative"})
	}
	if i.Status != nil {
		switch *i.Status {
		case domain.DeckStatusLearned, domain.DeckStatusDueSoon, domain.DeckStatusOverdue:
		default:
			errs = append(errs, domain.FieldError{Field: "status", Message: "unknown status"})
		}
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}

	if i.Limit == 0 {
		i.Limit = 20
	}
	return nil
}

// CreateCardInput holds parameters for adding a card to a deck.
type CreateCardInput struct {
	Front string
	Back  string
}

// Validate validates the create card input.
func (i CreateCardInput) Validate() error {
	var errs []domain.FieldError

	errs = append(errs, validateFace("front", i.Front)...)
	errs = append(errs, validateFace("back", i.Back)...)

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UpdateCardInput holds parameters for card update.
// All fields are optional (nil = don't change).
type UpdateCardInput struct {
	Front *string
	Back  *string
}

// Validate validates the update card input.
func (i UpdateCardInput) Validate() error {
	var errs []domain.FieldError

	if i.Front != nil {
		errs = append(errs, validateFace("front", *i.Front)...)
	}
	if i.Back != nil {
		errs = append(errs, validateFace("back", *i.Back)...)
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func validateFace(field, value string) []domain.FieldError {
	if strings.TrimSpace(value) == "" {
		return []domain.FieldError{{Field: field, Message: "cannot be blank"}}
	}
	if utf8.RuneCountInString(value) > maxCardFaceLen {
		return []domain.FieldError{{Field: field, Message: "too long"}}
	}
	return nil
}

// GenerateDeckInput holds parameters for AI deck generation.
type GenerateDeckInput struct {
	Prompt     string
	Language   string
	Difficulty string
	CardCount  int
}

// Validate validates the generation input against the configured card limit.
func (i GenerateDeckInput) Validate(maxCards int) error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.Prompt) == "" {
		errs = append(errs, domain.FieldError{Field: "prompt", Message: "required"})
	} else if utf8.RuneCountInString(i.Prompt) > 500 {
		errs = append(errs, domain.FieldError{Field: "prompt", Message: "too long"})
	}

	if i.CardCount < 1 {
		errs = append(errs, domain.FieldError{Field: "card_count", Message: "must be at least 1"})
	} else if i.CardCount > maxCards {
		errs = append(errs, domain.FieldError{Field: "card_count", Message: "exceeds the card limit"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
