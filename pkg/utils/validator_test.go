package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ana.pop@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("missing@tld"))
}

func TestAmountToCents(t *testing.T) {
	assert.Equal(t, int64(12345), AmountToCents(123.45))
	assert.Equal(t, int64(100), AmountToCents(1.0))
	// 19.99 is not exactly representable; rounding must not lose a cent
	assert.Equal(t, int64(1999), AmountToCents(19.99))
	assert.Equal(t, int64(0), AmountToCents(0))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "clean text", SanitizeString("clean\x00 text\x1f"))
	assert.Equal(t, "unchanged", SanitizeString("unchanged"))
}
