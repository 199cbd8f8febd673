package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const maxTimelineName = 100

// ValidateTimelineName checks a timeline name after trimming.
func ValidateTimelineName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("name is required")
	}

	if utf8.RuneCountInString(trimmed) > maxTimelineName {
		return errors.New("name is too long (max 100 characters)")
	}

	return nil
}
