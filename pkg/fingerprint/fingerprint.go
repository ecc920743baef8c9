// Package fingerprint derives stable content hashes used as record identities.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// fieldSeparator cannot appear in normalized review fields.
const fieldSeparator = "\x1f"

// Calculate computes the SHA-256 hash of the given fields joined by a separator.
func Calculate(fields ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(fields, fieldSeparator)))

	return hex.EncodeToString(hash[:])
}

// Review returns the identity hash of a review: author, calendar date and text.
func Review(author string, date time.Time, text string) string {
	return Calculate(
		strings.TrimSpace(author),
		date.UTC().Format(time.DateOnly),
		strings.TrimSpace(text),
	)
}

// Verify reports whether hash is the fingerprint of the given review fields.
func Verify(hash, author string, date time.Time, text string) bool {
	return hash != "" && hash == Review(author, date, text)
}
