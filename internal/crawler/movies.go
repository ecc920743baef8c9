package crawler

import (
	"context"
	"errors"
	"time"

	"moviesync/internal/logger"
	"moviesync/internal/models"
)

// MovieLister lists the feature films released in a date window, most popular first.
type MovieLister struct {
	client   *Client
	log      *logger.Logger
	pageSize int
}

// NewMovieLister creates a lister fetching pageSize titles per request.
func NewMovieLister(client *Client, pageSize int, log *logger.Logger) *MovieLister {
	if pageSize <= 0 {
		pageSize = 50
	}

	if log == nil {
		log = logger.Nop()
	}

	return &MovieLister{client: client, pageSize: pageSize, log: log}
}

// ListMovies pages through the listing until it is exhausted or limit titles
// were collected. limit <= 0 means no limit.
func (l *MovieLister) ListMovies(ctx context.Context, from, to time.Time, limit int) ([]models.MovieListing, error) {
	var listings []models.MovieListing

	seen := make(map[string]bool)

	for start := 1; ; start += l.pageSize {
		count := l.pageSize
		if limit > 0 && limit-len(listings) < count {
			count = limit - len(listings)
		}

		page, err := l.client.ListingPage(ctx, from, to, count, start)
		if errors.Is(err, ErrNoListingItems) {
			if start == 1 {
				l.log.Warn("listing is empty", "from", from.Format(releaseDateLayout), "to", to.Format(releaseDateLayout))
			}

			break
		}

		if err != nil {
			return nil, err
		}

		added := 0

		for _, item := range page {
			if seen[item.IMDbID] {
				continue
			}

			seen[item.IMDbID] = true
			listings = append(listings, item)
			added++

			if limit > 0 && len(listings) >= limit {
				return listings, nil
			}
		}

		if len(page) < count || added == 0 {
			break
		}

		l.log.Debug("listing page fetched", "start", start, "items", len(page))
	}

	return listings, nil
}
