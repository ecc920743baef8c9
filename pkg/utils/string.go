package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace replaces multiple whitespace with single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates string to max length in runes.
func (s *StringHelper) TruncateString(str string, maxLength int) string {
	runes := []rune(str)
	if len(runes) <= maxLength {
		return str
	}

	return string(runes[:maxLength]) + "..."
}

// ParseCount extracts an integer from text such as "1,234 Reviews".
// It returns false when the text holds no digits.
func (s *StringHelper) ParseCount(str string) (int, bool) {
	var digits strings.Builder

	for _, r := range str {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == ',' || r == '.':
			// thousands separators
		case digits.Len() > 0:
			return atoi(digits.String())
		}
	}

	if digits.Len() == 0 {
		return 0, false
	}

	return atoi(digits.String())
}

func atoi(str string) (int, bool) {
	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, false
	}

	return n, true
}
