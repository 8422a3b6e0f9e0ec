package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/internal/service/user"
)

type userService interface {
	GetProfile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, input user.UpdateProfileInput) (*domain.User, error)
}

type statsService interface {
	UserStats(ctx context.Context) (*domain.UserStats, error)
}

// UserHandler serves the /api/me endpoints.
type UserHandler struct {
	svc   userService
	stats statsService
	log   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(svc userService, stats statsService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, stats: stats, log: logger.With("handler", "user")}
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type updateProfileRequest struct {
	Username  *string `json:"username"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
}

type userStatsResponse struct {
	TotalDecks            int     `json:"totalDecks"`
	TotalCards            int     `json:"totalCards"`
	TotalSessions         int     `json:"totalSessions"`
	TotalReviews          int     `json:"totalReviews"`
	DueCardsCount         int     `json:"dueCardsCount"`
	LearningStreak        int     `json:"learningStreak"`
	RecentAccuracyPercent int     `json:"recentAccuracyPercent"`
	AverageResponseTimeMs float64 `json:"averageResponseTimeMs"`
}

// Me handles GET /api/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetProfile(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateMe handles PATCH /api/me. Absent fields stay unchanged.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), user.UpdateProfileInput{
		Username:  req.Username,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Stats handles GET /api/me/stats.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.UserStats(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, userStatsResponse{
		TotalDecks:            stats.TotalDecks,
		TotalCards:            stats.TotalCards,
		TotalSessions:         stats.TotalSessions,
		TotalReviews:          stats.TotalReviews,
		DueCardsCount:         stats.DueCardsCount,
		LearningStreak:        stats.LearningStreak,
		RecentAccuracyPercent: stats.RecentAccuracyPercent,
		AverageResponseTimeMs: stats.AverageResponseTimeMs,
	})
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
	}
}
