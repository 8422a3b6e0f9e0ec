// Package sm2 implements the SM-2 style review scheduling used for
// flashcards: per-card ease factor, review interval ladder, and due dates.
// Every function is pure and deterministic: replaying the same ordered
// review history always reproduces the same final state.
package sm2

import (
	"math"
	"time"
)

// Params holds the algorithm bounds. Zero values are not usable; callers
// build Params from config (see DefaultParams).
type Params struct {
	DefaultEase       float64
	MinEase           float64
	MaxEase           float64
	MaxIntervalDays   int
	LapseIntervalDays int
}

// DefaultParams returns the standard SM-2 parameter set.
func DefaultParams() Params {
	return Params{
		DefaultEase:       2.5,
		MinEase:           1.3,
		MaxEase:           4.0,
		MaxIntervalDays:   365,
		LapseIntervalDays: 1,
	}
}

// State is the scheduling state of one card.
type State struct {
	Ease           float64
	IntervalDays   int
	Repetitions    int
	IncorrectCount int
	TimedReviews   int
	TotalTimeMs    int64
	AverageTimeMs  float64
	Due            time.Time
	LastReviewedAt time.Time
}

// NewState returns the state of a never-reviewed card: default ease,
// due immediately at the card's creation time.
func NewState(p Params, createdAt time.Time) State {
	return State{
		Ease: p.DefaultEase,
		Due:  createdAt,
	}
}

// Quality buckets. Correct answers map to 5 (fast), 4 (normal), or 2 (slow,
// relative to the card's running average response time); a correct answer
// with no timing history is a plain 4, so untimed reviews hold the ease
// steady and only measurably fast answers raise it.
const (
	qualitySlow    = 2
	qualityNormal  = 4
	qualityFast    = 5
	fastThreshold  = 0.75
	slowThreshold  = 1.25
	lapseEasePenal = 0.20
)

// quality derives the SM-2 answer quality from the response time relative
// to the card's prior average.
func quality(avgTimeMs float64, responseTimeMs *int) int {
	if responseTimeMs == nil || avgTimeMs <= 0 {
		return qualityNormal
	}
	t := float64(*responseTimeMs)
	switch {
	case t < avgTimeMs*fastThreshold:
		return qualityFast
	case t > avgTimeMs*slowThreshold:
		return qualitySlow
	default:
		return qualityNormal
	}
}

// easeDelta is the classic SM-2 ease adjustment for quality q in [0,5]:
//
//	EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))
func easeDelta(q int) float64 {
	miss := float64(5 - q)
	return 0.1 - miss*(0.08+miss*0.02)
}

// Review applies one review outcome at the given time and returns the new
// state. The input state is not mutated.
func Review(p Params, s State, isCorrect bool, responseTimeMs *int, now time.Time) State {
	next := s

	if isCorrect {
		q := quality(s.AverageTimeMs, responseTimeMs)
		next.Ease = clamp(s.Ease+easeDelta(q), p.MinEase, p.MaxEase)
		next.Repetitions = s.Repetitions + 1

		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(s.IntervalDays) * next.Ease))
		}
		if next.IntervalDays > p.MaxIntervalDays {
			next.IntervalDays = p.MaxIntervalDays
		}
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
	} else {
		// Lapse: ease drops by a fixed penalty, progress resets, the card
		// comes back after the short lapse interval.
		next.Ease = clamp(s.Ease-lapseEasePenal, p.MinEase, p.MaxEase)
		next.Repetitions = 0
		next.IncorrectCount = s.IncorrectCount + 1
		next.IntervalDays = p.LapseIntervalDays
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
	}

	if responseTimeMs != nil {
		next.TimedReviews = s.TimedReviews + 1
		next.TotalTimeMs = s.TotalTimeMs + int64(*responseTimeMs)
		next.AverageTimeMs = float64(next.TotalTimeMs) / float64(next.TimedReviews)
	}

	next.LastReviewedAt = now
	next.Due = now.AddDate(0, 0, next.IntervalDays)

	return next
}

// Replay folds an ordered review history over a fresh state. It exists for
// recomputing a card's scheduling from the append-only review log.
type Outcome struct {
	IsCorrect      bool
	ResponseTimeMs *int
	ReviewedAt     time.Time
}

// Replay returns the state after applying every outcome in order, starting
// from the never-reviewed state.
func Replay(p Params, createdAt time.Time, history []Outcome) State {
	s := NewState(p, createdAt)
	for _, o := range history {
		s = Review(p, s, o.IsCorrect, o.ResponseTimeMs, o.ReviewedAt)
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
