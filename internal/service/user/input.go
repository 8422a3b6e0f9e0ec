package user

import (
	"unicode/utf8"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// UpdateProfileInput holds parameters for profile update operation.
// All fields are optional (nil = don't change).
type UpdateProfileInput struct {
	Username  *string
	Bio       *string
	AvatarURL *string
}

// Validate validates the update profile input.
func (i UpdateProfileInput) Validate() error {
	var errs []domain.FieldError

	if i.Username != nil {
		if utf8.RuneCountInString(*i.Username) < 3 {
			errs = append(errs, domain.FieldError{Field: "username", Message: "must be at least 3 characters"})
		} else if utf8.RuneCountInString(*i.Username) > 64 {
			errs = append(errs, domain.FieldError{Field: "username", Message: "must be at most 64 characters"})
		}
	}

	if i.Bio != nil && utf8.RuneCountInString(*i.Bio) > 1000 {
		errs = append(errs, domain.FieldError{Field: "bio", Message: "too long"})
	}

	if i.AvatarURL != nil && len(*i.AvatarURL) > 512 {
		errs = append(errs, domain.FieldError{Field: "avatar_url", Message: "too long"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
