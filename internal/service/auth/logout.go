package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// Logout revokes all refresh tokens of the current user.
func (s *Service) Logout(ctx context.Context) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return fmt.Errorf("auth.Logout: %w", domain.ErrUnauthorized)
	}

	if err := s.tokens.RevokeAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("auth.Logout: revoke tokens: %w", err)
	}

	s.log.InfoContext(ctx, "user logged out", "user_id", userID)

	return nil
}

// ValidateToken validates an access token and returns the user ID and role.
// Used by the auth middleware.
func (s *Service) ValidateToken(token string) (uuid.UUID, string, error) {
	userID, role, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("auth.ValidateToken: %w", domain.ErrUnauthorized)
	}
	return userID, role, nil
}

// CleanupExpiredTokens deletes refresh tokens past their expiry. Meant to be
// run periodically, e.g. from the cleanup command.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int, error) {
	n, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("auth.CleanupExpiredTokens: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired refresh tokens deleted", "count", n)
	}
	return n, nil
}
