package utils

import (
	"fmt"
	"math"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// AmountToCents converts a currency amount to fixed point cents. Amounts are
// always compared as int64 cents, never as floats.
func AmountToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// SanitizeString removes control characters from user-provided text
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
