package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// RoundIDRegex validates interview round ID format
	RoundIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateRoundID validates interview round ID format
func ValidateRoundID(roundID string) error {
	if roundID == "" {
		return fmt.Errorf("round_id is required")
	}
	if len(roundID) > 100 {
		return fmt.Errorf("round_id is too long (max 100 characters)")
	}
	if !RoundIDRegex.MatchString(roundID) {
		return fmt.Errorf("round_id contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateTimestampMs validates a millisecond offset relative to interview start
func ValidateTimestampMs(ts int64) error {
	if ts < 0 {
		return fmt.Errorf("timestamp_ms must be >= 0")
	}
	return nil
}
