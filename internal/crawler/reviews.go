package crawler

import (
	"context"
	"fmt"

	"moviesync/internal/logger"
	"moviesync/internal/models"
	"moviesync/internal/normalizer"
)

// ReviewFeed returns the reviews of a title that a watermark does not yet cover.
type ReviewFeed struct {
	client    *Client
	processor *normalizer.Processor
	log       *logger.Logger
	maxPages  int
}

// NewReviewFeed creates a review feed reading at most maxPages pages per title.
func NewReviewFeed(client *Client, maxPages int, log *logger.Logger) *ReviewFeed {
	if maxPages <= 0 {
		maxPages = 1
	}

	if log == nil {
		log = logger.Nop()
	}

	return &ReviewFeed{
		client:    client,
		processor: normalizer.NewProcessor(),
		log:       log,
		maxPages:  maxPages,
	}
}

// FetchNewReviews walks the newest-first feed of imdbID.
//
// With a watermark only the first total-wm.TotalReviews reviews not older
// than wm.LastDateReview are returned. When nothing is new the batch echoes
// the watermark's date. Without a watermark every review within the page
// limit is returned. The returned total is the count shown by the site, or
// the collected count plus the watermark's when the page does not show one.
// In that case reviews dated on or before wm.LastDateReview are not new.
func (f *ReviewFeed) FetchNewReviews(ctx context.Context, imdbID string, wm *models.Watermark) (*models.ReviewBatch, error) {
	var (
		collected []models.Review
		total     int
		hasTotal  bool
		key       string
	)

	limit := -1
	seen := make(map[string]bool)

	for pageNum := 1; pageNum <= f.maxPages; pageNum++ {
		page, err := f.client.ReviewPage(ctx, imdbID, key)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}

		if pageNum == 1 && page.HasTotal {
			total, hasTotal = page.Total, true

			if wm != nil {
				delta := total - wm.TotalReviews
				if delta <= 0 {
					f.log.Debug("no new reviews", "imdb_id", imdbID, "total_reviews", total)

					return &models.ReviewBatch{TotalReviews: total, LastDateReview: wm.LastDateReview}, nil
				}

				limit = delta
			}
		}

		done := false

		for _, raw := range page.Reviews {
			review, err := f.processor.Process(raw)
			if err != nil {
				f.log.Warn("skipping malformed review", "imdb_id", imdbID, "error", err)

				continue
			}

			if wm != nil && wm.LastDateReview != nil {
				if review.Date.Before(*wm.LastDateReview) {
					done = true

					break
				}

				// Without a site total nothing caps the delta, so the
				// watermark's own day is already stored.
				if !hasTotal && !review.Date.After(*wm.LastDateReview) {
					continue
				}
			}

			if seen[review.Fingerprint] {
				continue
			}

			seen[review.Fingerprint] = true
			collected = append(collected, review)

			if limit >= 0 && len(collected) >= limit {
				done = true

				break
			}
		}

		if done || page.NextKey == "" {
			break
		}

		key = page.NextKey
	}

	if !hasTotal {
		total = len(collected)
		if wm != nil {
			total += wm.TotalReviews
		}
	}

	batch := &models.ReviewBatch{Reviews: collected, TotalReviews: total}

	switch {
	case len(collected) > 0:
		latest := collected[0].Date
		for _, r := range collected[1:] {
			if r.Date.After(latest) {
				latest = r.Date
			}
		}

		batch.LastDateReview = &latest
	case wm != nil:
		batch.LastDateReview = wm.LastDateReview
	}

	return batch, nil
}
