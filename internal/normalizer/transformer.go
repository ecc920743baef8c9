package normalizer

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"moviesync/internal/models"
	"moviesync/pkg/fingerprint"
	"moviesync/pkg/utils"
)

// ErrUnparsableDate is returned when a review date matches no known layout.
var ErrUnparsableDate = errors.New("unparsable review date")

// dateLayouts are the review date formats seen on review pages.
var dateLayouts = []string{
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.DateOnly,
	time.RFC3339,
}

// Transformer converts raw review fragments into normalized reviews.
type Transformer struct {
	policy  *bluemonday.Policy
	strings *utils.StringHelper
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		policy:  bluemonday.StrictPolicy(),
		strings: utils.NewStringHelper(),
	}
}

// Transform strips markup, normalizes whitespace, parses the date and rating
// and computes the review fingerprint.
func (t *Transformer) Transform(raw models.RawReview) (models.Review, error) {
	date, err := ParseDate(raw.DateText)
	if err != nil {
		return models.Review{}, err
	}

	review := models.Review{
		Author: t.clean(raw.Author),
		Date:   date,
		Title:  t.clean(raw.Title),
		Text:   t.cleanBody(raw.Body),
		Rating: t.parseRating(raw.RatingText),
	}
	review.Fingerprint = fingerprint.Review(review.Author, review.Date, review.Text)

	return review, nil
}

// ParseDate parses a review date as a UTC calendar day.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, text)
}

// clean strips every tag and collapses whitespace.
func (t *Transformer) clean(s string) string {
	return t.strings.NormalizeWhitespace(html.UnescapeString(t.policy.Sanitize(s)))
}

// cleanBody keeps paragraph breaks: <br> and </p> become newlines before stripping.
func (t *Transformer) cleanBody(s string) string {
	replacer := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n")
	stripped := html.UnescapeString(t.policy.Sanitize(replacer.Replace(s)))

	var lines []string

	for _, line := range strings.Split(stripped, "\n") {
		if normalized := t.strings.NormalizeWhitespace(line); normalized != "" {
			lines = append(lines, normalized)
		}
	}

	return strings.Join(lines, "\n")
}

// parseRating reads ratings such as "8/10" or "8". Anything else yields nil.
func (t *Transformer) parseRating(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if before, _, found := strings.Cut(s, "/"); found {
		s = strings.TrimSpace(before)
	}

	value, err := strconv.Atoi(s)
	if err != nil || value < 1 || value > 10 {
		return nil
	}

	return &value
}
