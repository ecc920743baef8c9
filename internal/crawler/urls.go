package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidBaseURL is returned when the configured site URL cannot be used.
var ErrInvalidBaseURL = errors.New("invalid base URL")

const releaseDateLayout = "2006-01-02"

// URLBuilder builds listing and review page URLs for one site root.
type URLBuilder struct {
	base *url.URL
}

// NewURLBuilder validates baseURL and returns a builder rooted at it.
func NewURLBuilder(baseURL string) (*URLBuilder, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	return &URLBuilder{base: base}, nil
}

// ListingURL returns one page of feature films released in [from, to],
// sorted by popularity. start is 1-based.
func (b *URLBuilder) ListingURL(from, to time.Time, count, start int) string {
	query := url.Values{}
	query.Set("title_type", "feature")
	query.Set("release_date", from.Format(releaseDateLayout)+","+to.Format(releaseDateLayout))
	query.Set("sort", "moviemeter,asc")
	query.Set("count", fmt.Sprint(count))
	query.Set("start", fmt.Sprint(start))

	return b.build("/search/title/", query)
}

// ReviewsURL returns the newest-first review page of a title. A non-empty
// paginationKey selects the "load more" fragment following that key.
func (b *URLBuilder) ReviewsURL(imdbID, paginationKey string) string {
	query := url.Values{}
	query.Set("sort", "submissionDate")
	query.Set("dir", "desc")
	query.Set("ratingFilter", "0")

	if paginationKey == "" {
		return b.build("/title/"+imdbID+"/reviews", query)
	}

	query.Set("paginationKey", paginationKey)

	return b.build("/title/"+imdbID+"/reviews/_ajax", query)
}

func (b *URLBuilder) build(path string, query url.Values) string {
	u := *b.base
	u.Path = strings.TrimRight(b.base.Path, "/") + path
	u.RawQuery = query.Encode()

	return u.String()
}
