package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	authpkg "github.com/heartmarshall/flashdeck-backend/internal/auth"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued. Presenting an already-revoked token is treated as
// token theft and revokes every session of the affected user.
func (s *Service) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	hash := authpkg.HashToken(input.RefreshToken)

	token, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("auth.Refresh: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("auth.Refresh: get token: %w", err)
	}

	if token.IsRevoked() {
		s.log.WarnContext(ctx, "revoked refresh token presented, revoking all user tokens",
			"user_id", token.UserID)
		if err := s.tokens.RevokeAllByUser(ctx, token.UserID); err != nil {
			return nil, fmt.Errorf("auth.Refresh: revoke all tokens: %w", err)
		}
		return nil, fmt.Errorf("auth.Refresh: %w", domain.ErrUnauthorized)
	}

	if token.IsExpired(time.Now()) {
		return nil, fmt.Errorf("auth.Refresh: %w", domain.ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// user deleted after the token was issued
			return nil, fmt.Errorf("auth.Refresh: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("auth.Refresh: get user: %w", err)
	}

	if err := s.tokens.RevokeByID(ctx, token.ID); err != nil {
		return nil, fmt.Errorf("auth.Refresh: revoke token: %w", err)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	return result, nil
}
