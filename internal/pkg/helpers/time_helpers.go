package helpers

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInvalidDeadline is returned when a deadline is not an ISO-8601 timestamp
var ErrInvalidDeadline = errors.New("invalid deadline format")

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		// Use the global logger here, the configured one may not exist yet
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDeadline parses an optional ISO-8601 deadline. Empty input yields nil.
// Timestamps without a zone are taken as UTC.
func ParseDeadline(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrInvalidDeadline
}
