package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authpkg "github.com/heartmarshall/flashdeck-backend/internal/auth"
	"github.com/heartmarshall/flashdeck-backend/internal/config"
	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

//go:generate moq -out user_repo_mock_test.go -pkg auth . userRepo
//go:generate moq -out token_repo_mock_test.go -pkg auth . tokenRepo
//go:generate moq -out jwt_manager_mock_test.go -pkg auth . jwtManager

// defaultCfg returns a config suitable for most tests.
func defaultCfg() config.AuthConfig {
	return config.AuthConfig{
		RefreshTokenTTL:  30 * 24 * time.Hour,
		PasswordHashCost: 4, // minimum cost for fast tests
	}
}

// hashPassword returns a bcrypt hash for testing.
func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	return string(hash)
}

// happyJWT returns a jwt mock that always succeeds.
func happyJWT() *jwtManagerMock {
	return &jwtManagerMock{
		GenerateAccessTokenFunc: func(userID uuid.UUID, role string) (string, error) {
			return "access_token", nil
		},
		GenerateRefreshTokenFunc: func() (string, string, error) {
			return "raw_refresh", "hash_refresh", nil
		},
	}
}

// ─── Register ───────────────────────────────────────────────────────────────

func TestService_Register(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	usersMock := &userRepoMock{
		CreateFunc: func(ctx context.Context, user *domain.User) (*domain.User, error) {
			created := *user
			created.ID = uuid.New()
			return &created, nil
		},
	}
	tokensMock := &tokenRepoMock{
		CreateFunc: func(ctx context.Context, token *domain.RefreshToken) error { return nil },
	}

	svc := NewService(slog.Default(), usersMock, tokensMock, happyJWT(), defaultCfg())

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "  Test@Example.COM ",
		Username: "learner",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if result.AccessToken != "access_token" {
		t.Errorf("AccessToken = %q, want %q", result.AccessToken, "access_token")
	}
	if result.RefreshToken != "raw_refresh" {
		t.Errorf("RefreshToken = %q, want raw token, not hash", result.RefreshToken)
	}

	creates := usersMock.CreateCalls()
	if len(creates) != 1 {
		t.Fatalf("user Create called %d times, want 1", len(creates))
	}
	created := creates[0].User
	if created.Email != "test@example.com" {
		t.Errorf("email = %q, want normalized lowercase", created.Email)
	}
	if created.Role != domain.UserRoleUser {
		t.Errorf("role = %q, want %q", created.Role, domain.UserRoleUser)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("password123")); err != nil {
		t.Errorf("stored password hash does not match password: %v", err)
	}

	tokenCreates := tokensMock.CreateCalls()
	if len(tokenCreates) != 1 {
		t.Fatalf("token Create called %d times, want 1", len(tokenCreates))
	}
	if tokenCreates[0].Token.TokenHash != "hash_refresh" {
		t.Errorf("stored token hash = %q, want %q", tokenCreates[0].Token.TokenHash, "hash_refresh")
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	usersMock := &userRepoMock{
		CreateFunc: func(ctx context.Context, user *domain.User) (*domain.User, error) {
			return nil, domain.ErrAlreadyExists
		},
	}

	svc := NewService(slog.Default(), usersMock, &tokenRepoMock{}, happyJWT(), defaultCfg())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Username: "learner",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(slog.Default(), &userRepoMock{}, &tokenRepoMock{}, happyJWT(), defaultCfg())

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"empty email", RegisterInput{Username: "learner", Password: "password123"}},
		{"bad email", RegisterInput{Email: "not-an-email", Username: "learner", Password: "password123"}},
		{"short username", RegisterInput{Email: "a@b.com", Username: "ab", Password: "password123"}},
		{"short password", RegisterInput{Email: "a@b.com", Username: "learner", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

// ─── Login ──────────────────────────────────────────────────────────────────

func TestService_Login(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	usersMock := &userRepoMock{
		GetByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			if email != "test@example.com" {
				t.Errorf("GetByEmail called with %q, want normalized email", email)
			}
			return &domain.User{
				ID:           userID,
				Email:        email,
				Role:         domain.UserRoleUser,
				PasswordHash: hashPassword(t, "password123"),
			}, nil
		},
	}
	tokensMock := &tokenRepoMock{
		CreateFunc: func(ctx context.Context, token *domain.RefreshToken) error { return nil },
	}

	svc := NewService(slog.Default(), usersMock, tokensMock, happyJWT(), defaultCfg())

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "Test@Example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != userID {
		t.Errorf("user ID = %v, want %v", result.User.ID, userID)
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	t.Parallel()

	usersMock := &userRepoMock{
		GetByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{
				ID:           uuid.New(),
				PasswordHash: hashPassword(t, "correct-password"),
			}, nil
		},
	}

	svc := NewService(slog.Default(), usersMock, &tokenRepoMock{}, happyJWT(), defaultCfg())

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "test@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestService_Login_UnknownEmail(t *testing.T) {
	t.Parallel()

	usersMock := &userRepoMock{
		GetByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return nil, domain.ErrNotFound
		},
	}

	svc := NewService(slog.Default(), usersMock, &tokenRepoMock{}, happyJWT(), defaultCfg())

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized, not ErrNotFound", err)
	}
}

// ─── Refresh ────────────────────────────────────────────────────────────────

func TestService_Refresh_Rotation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tokenID := uuid.New()
	raw := "old_raw_token"

	tokensMock := &tokenRepoMock{
		GetByHashFunc: func(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
			if tokenHash != authpkg.HashToken(raw) {
				t.Errorf("GetByHash called with %q, want hash of raw token", tokenHash)
			}
			return &domain.RefreshToken{
				ID:        tokenID,
				UserID:    userID,
				TokenHash: tokenHash,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		RevokeByIDFunc: func(ctx context.Context, id uuid.UUID) error { return nil },
		CreateFunc:     func(ctx context.Context, token *domain.RefreshToken) error { return nil },
	}
	usersMock := &userRepoMock{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
			return &domain.User{ID: id, Role: domain.UserRoleUser}, nil
		},
	}

	svc := NewService(slog.Default(), usersMock, tokensMock, happyJWT(), defaultCfg())

	result, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: raw})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if result.RefreshToken != "raw_refresh" {
		t.Errorf("RefreshToken = %q, want fresh token", result.RefreshToken)
	}

	revokes := tokensMock.RevokeByIDCalls()
	if len(revokes) != 1 || revokes[0].ID != tokenID {
		t.Errorf("RevokeByID calls = %v, want one call for the presented token", revokes)
	}
	if len(tokensMock.CreateCalls()) != 1 {
		t.Errorf("token Create called %d times, want 1", len(tokensMock.CreateCalls()))
	}
}

func TestService_Refresh_ReuseDetection(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	revokedAt := time.Now().Add(-time.Minute)

	tokensMock := &tokenRepoMock{
		GetByHashFunc: func(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
			return &domain.RefreshToken{
				ID:        uuid.New(),
				UserID:    userID,
				ExpiresAt: time.Now().Add(time.Hour),
				RevokedAt: &revokedAt,
			}, nil
		},
		RevokeAllByUserFunc: func(ctx context.Context, id uuid.UUID) error { return nil },
	}

	svc := NewService(slog.Default(), &userRepoMock{}, tokensMock, happyJWT(), defaultCfg())

	_, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: "stolen"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	revokes := tokensMock.RevokeAllByUserCalls()
	if len(revokes) != 1 || revokes[0].UserID != userID {
		t.Errorf("RevokeAllByUser calls = %v, want one call for the token's user", revokes)
	}
}

func TestService_Refresh_Expired(t *testing.T) {
	t.Parallel()

	tokensMock := &tokenRepoMock{
		GetByHashFunc: func(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
			return &domain.RefreshToken{
				ID:        uuid.New(),
				UserID:    uuid.New(),
				ExpiresAt: time.Now().Add(-time.Hour),
			}, nil
		},
	}

	svc := NewService(slog.Default(), &userRepoMock{}, tokensMock, happyJWT(), defaultCfg())

	_, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: "expired"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestService_Refresh_Unknown(t *testing.T) {
	t.Parallel()

	tokensMock := &tokenRepoMock{
		GetByHashFunc: func(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
			return nil, domain.ErrNotFound
		},
	}

	svc := NewService(slog.Default(), &userRepoMock{}, tokensMock, happyJWT(), defaultCfg())

	_, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: "unknown"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

// ─── Logout ─────────────────────────────────────────────────────────────────

func TestService_Logout(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tokensMock := &tokenRepoMock{
		RevokeAllByUserFunc: func(ctx context.Context, id uuid.UUID) error { return nil },
	}

	svc := NewService(slog.Default(), &userRepoMock{}, tokensMock, happyJWT(), defaultCfg())

	ctx := ctxutil.WithUserID(context.Background(), userID)
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	revokes := tokensMock.RevokeAllByUserCalls()
	if len(revokes) != 1 || revokes[0].UserID != userID {
		t.Errorf("RevokeAllByUser calls = %v, want one call for current user", revokes)
	}
}

func TestService_Logout_NoUser(t *testing.T) {
	t.Parallel()

	svc := NewService(slog.Default(), &userRepoMock{}, &tokenRepoMock{}, happyJWT(), defaultCfg())

	err := svc.Logout(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

// ─── ValidateToken ──────────────────────────────────────────────────────────

func TestService_ValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwtMock := &jwtManagerMock{
		ValidateAccessTokenFunc: func(token string) (uuid.UUID, string, error) {
			if token == "good" {
				return userID, "user", nil
			}
			return uuid.Nil, "", errors.New("bad signature")
		},
	}

	svc := NewService(slog.Default(), &userRepoMock{}, &tokenRepoMock{}, jwtMock, defaultCfg())

	gotID, role, err := svc.ValidateToken("good")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotID != userID || role != "user" {
		t.Errorf("got (%v, %q), want (%v, %q)", gotID, role, userID, "user")
	}

	_, _, err = svc.ValidateToken("bad")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
