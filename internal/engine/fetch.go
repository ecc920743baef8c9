package engine

import (
	"context"
	"errors"
	"fmt"

	"moviesync/internal/logger"
	"moviesync/internal/models"
)

// process fetches and stores the new reviews of one movie. prior is nil for
// an entering movie. It never returns an error: every failure is an outcome.
func (e *Engine) process(ctx context.Context, movie models.MovieID, prior *models.Watermark) Outcome {
	log := e.log.With("imdb_id", movie.IMDbID)

	if movie.TMDBID == 0 {
		tmdbID, err := e.metadata.ResolveTMDBID(ctx, movie.IMDbID)

		switch {
		case errors.Is(err, models.ErrNotFound):
			log.Info("movie not found, skipping")

			return Outcome{Movie: movie, Status: models.StatusNotFound, Reason: err}
		case err != nil:
			return failed(log, movie, fmt.Errorf("%w: resolve %s: %w", ErrAdapterFailure, movie.IMDbID, err))
		}

		movie.TMDBID = tmdbID
	}

	batch, err := e.feed.FetchNewReviews(ctx, movie.IMDbID, prior)

	switch {
	case errors.Is(err, models.ErrNotFound):
		log.Info("review feed not found, skipping")

		return Outcome{Movie: movie, Status: models.StatusNotFound, Reason: err}
	case err != nil:
		return failed(log, movie, fmt.Errorf("%w: reviews of %s: %w", ErrAdapterFailure, movie.IMDbID, err))
	case batch == nil:
		return failed(log, movie, fmt.Errorf("%w: empty response for %s", ErrAdapterFailure, movie.IMDbID))
	}

	mutations := PlanMutations(movie, prior, batch)

	outcome := Outcome{Movie: movie, Status: models.StatusSucceeded, Mutations: mutations}

	for _, m := range mutations {
		if m.Kind == MergeReviews {
			outcome.NewReviews = len(m.Reviews)
		}
	}

	if err := e.apply(ctx, mutations); err != nil {
		outcome.Status = models.StatusFailed
		outcome.Reason = err
		outcome.NewReviews = 0
		log.Error("failed to store movie", "error", err)

		return outcome
	}

	log.Info("movie synchronized",
		"tmdb_id", movie.TMDBID,
		"new_reviews", outcome.NewReviews,
		"total_reviews", batch.TotalReviews,
	)

	return outcome
}

func failed(log *logger.Logger, movie models.MovieID, err error) Outcome {
	log.Error("failed to process movie", "error", err)

	return Outcome{Movie: movie, Status: models.StatusFailed, Reason: err}
}

// apply executes mutations in order and stops at the first failure, so a
// watermark is never written for reviews that were not stored.
func (e *Engine) apply(ctx context.Context, mutations []Mutation) error {
	for _, m := range mutations {
		var err error

		switch m.Kind {
		case MergeReviews:
			err = e.store.MergeReviews(ctx, m.Movie, m.Reviews)
		case PutWatermark:
			err = e.store.UpsertPopularEntry(ctx, m.Entry)
		case DeleteEntry:
			err = e.store.DeletePopularEntry(ctx, m.Movie.IMDbID)
		default:
			err = fmt.Errorf("unknown mutation %d", m.Kind)
		}

		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrStoreFailure, m.Kind, m.Movie.IMDbID, err)
		}
	}

	return nil
}
