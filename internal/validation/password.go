package validation

import (
	"errors"
	"strings"
)

var commonPasswordPatterns = []string{
	"password", "motdepasse", "123456", "azerty", "qwerty", "admin",
	"letmein", "bonjour", "soleil", "welcome", "linea",
}

// ValidatePassword enforces 12 to 72 characters and rejects common patterns.
// 72 bytes is the bcrypt limit; longer input would be truncated silently.
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}

	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPasswordPatterns {
		if strings.Contains(lower, pattern) {
			return errors.New("password is too common, please choose a stronger one")
		}
	}

	return nil
}
