package crawler

import (
	"context"
	"fmt"
	"time"

	"moviesync/internal/models"
)

// MovieListSource lists titles released in a window, most popular first.
type MovieListSource interface {
	ListMovies(ctx context.Context, from, to time.Time, limit int) ([]models.MovieListing, error)
}

// RankingSource produces the popularity-ordered candidate set of a window.
type RankingSource struct {
	lister MovieListSource
}

// NewRankingSource creates a ranking source backed by a movie lister.
func NewRankingSource(lister MovieListSource) *RankingSource {
	return &RankingSource{lister: lister}
}

// TopK returns at most k titles released in [from, to], most popular first.
// Only the IMDb id is known at this point; the TMDB id is resolved later.
func (r *RankingSource) TopK(ctx context.Context, from, to time.Time, k int) ([]models.MovieID, error) {
	if k <= 0 {
		return nil, nil
	}

	listings, err := r.lister.ListMovies(ctx, from, to, k)
	if err != nil {
		return nil, fmt.Errorf("failed to rank movies: %w", err)
	}

	ids := make([]models.MovieID, 0, len(listings))
	for _, listing := range listings {
		ids = append(ids, models.MovieID{IMDbID: listing.IMDbID})
	}

	return ids, nil
}
