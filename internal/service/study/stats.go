package study

import (
	"context"
	"fmt"
	"time"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
	"github.com/heartmarshall/flashdeck-backend/pkg/ctxutil"
)

// streakLookbackDays bounds the streak query; nobody needs more than a year.
const streakLookbackDays = 365

// UserStats aggregates the user's learning statistics. Everything is derived
// from the review log and current scheduling state on read; there are no
// mutable counters on the user row.
func (s *Service) UserStats(ctx context.Context) (*domain.UserStats, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, fmt.Errorf("study.UserStats: %w", domain.ErrUnauthorized)
	}

	now := s.now()
	stats := &domain.UserStats{}

	var err error
	if stats.TotalDecks, err = s.decks.CountByOwner(ctx, userID); err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}
	if stats.TotalCards, err = s.cards.CountByOwner(ctx, userID); err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}
	if stats.DueCardsCount, err = s.cards.DueCountByOwner(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}
	if stats.TotalSessions, err = s.sessions.CountByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}
	if stats.TotalReviews, err = s.reviews.CountByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days, err := s.reviews.StreakDays(ctx, userID, dayStart, streakLookbackDays)
	if err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}
	stats.LearningStreak = calculateStreak(days, dayStart)

	recent, err := s.reviews.RecentByUser(ctx, userID, s.cfg.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("study.UserStats: %w", err)
	}
	stats.RecentAccuracyPercent, stats.AverageResponseTimeMs = recentAggregates(recent)

	return stats, nil
}

// calculateStreak counts consecutive calendar days with at least one review,
// ending today or yesterday. days must be sorted DESC by date.
func calculateStreak(days []domain.DayReviewCount, today time.Time) int {
	if len(days) == 0 {
		return 0
	}

	sameDay := func(a, b time.Time) bool {
		return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
	}

	expected := today
	// A streak survives until the end of today, so a missing today entry
	// starts the count from yesterday.
	if !sameDay(days[0].Date, today) {
		expected = today.AddDate(0, 0, -1)
	}

	streak := 0
	for _, d := range days {
		if !sameDay(d.Date, expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// recentAggregates computes accuracy and mean response time over the recent
// review window. Reviews without a recorded time count for accuracy but not
// for the mean.
func recentAggregates(recent []domain.ReviewRecord) (accuracyPercent int, avgResponseMs float64) {
	if len(recent) == 0 {
		return 0, 0
	}

	correct := 0
	timedSum := 0
	timedCount := 0
	for _, r := range recent {
		if r.IsCorrect {
			correct++
		}
		if r.ResponseTimeMs != nil {
			timedSum += *r.ResponseTimeMs
			timedCount++
		}
	}

	accuracyPercent = int(float64(correct)/float64(len(recent))*100 + 0.5)
	if timedCount > 0 {
		avgResponseMs = float64(timedSum) / float64(timedCount)
	}
	return accuracyPercent, avgResponseMs
}
