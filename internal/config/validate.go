package config

import (
	"fmt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.SRS.validate(); err != nil {
		return fmt.Errorf("srs: %w", err)
	}

	if c.AI.Enabled() && c.AI.GenerateTimeout <= 0 {
		return fmt.Errorf("ai: generate_timeout must be > 0 (got %v)", c.AI.GenerateTimeout)
	}

	return nil
}

func (s *SRSConfig) validate() error {
	if s.MinEaseFactor <= 0 {
		return fmt.Errorf("min_ease_factor must be > 0 (got %v)", s.MinEaseFactor)
	}
	if s.MaxEaseFactor < s.MinEaseFactor {
		return fmt.Errorf("max_ease_factor must be >= min_ease_factor (got %v < %v)", s.MaxEaseFactor, s.MinEaseFactor)
	}
	if s.DefaultEaseFactor < s.MinEaseFactor || s.DefaultEaseFactor > s.MaxEaseFactor {
		return fmt.Errorf("default_ease_factor %v outside [%v, %v]", s.DefaultEaseFactor, s.MinEaseFactor, s.MaxEaseFactor)
	}
	if s.MaxIntervalDays <= 0 {
		return fmt.Errorf("max_interval_days must be > 0 (got %d)", s.MaxIntervalDays)
	}
	if s.LapseIntervalDays <= 0 {
		return fmt.Errorf("lapse_interval_days must be > 0 (got %d)", s.LapseIntervalDays)
	}
	if s.RecentWindow <= 0 {
		return fmt.Errorf("recent_window must be > 0 (got %d)", s.RecentWindow)
	}
	if s.SessionCardLimit <= 0 {
		return fmt.Errorf("session_card_limit must be > 0 (got %d)", s.SessionCardLimit)
	}
	return nil
}
