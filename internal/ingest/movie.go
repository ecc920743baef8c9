package ingest

import (
	"context"
	"errors"
	"fmt"

	"moviesync/internal/models"
	"moviesync/internal/store"
)

// ingestMovie stores one movie. Details, reviews, cast and directors are
// persisted independently: a failed step does not stop the following ones.
func (in *Ingester) ingestMovie(ctx context.Context, imdbID string, summary *Summary) (models.Status, error) {
	tmdbID, err := in.metadata.ResolveTMDBID(ctx, imdbID)
	if err != nil {
		return statusOf(err), fmt.Errorf("resolve: %w", err)
	}

	movie := models.MovieID{IMDbID: imdbID, TMDBID: tmdbID}

	details, err := in.metadata.MovieDetails(ctx, tmdbID)
	if err != nil {
		return statusOf(err), fmt.Errorf("details: %w", err)
	}

	var errs []error

	if details.IMDbID == "" {
		details.IMDbID = imdbID
	}

	if err := in.store.SaveDetails(ctx, details); err != nil {
		errs = append(errs, fmt.Errorf("save details: %w", err))
	}

	if err := in.saveReviews(ctx, movie, summary); err != nil {
		errs = append(errs, err)
	}

	if err := in.saveCredits(ctx, movie, summary); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return models.StatusFailed, errors.Join(errs...)
	}

	return models.StatusSucceeded, nil
}

func (in *Ingester) saveReviews(ctx context.Context, movie models.MovieID, summary *Summary) error {
	batch, err := in.feed.FetchNewReviews(ctx, movie.IMDbID, nil)
	if errors.Is(err, models.ErrNotFound) {
		in.log.Debug("no review page", "imdb_id", movie.IMDbID)

		return nil
	}

	if err != nil {
		return fmt.Errorf("fetch reviews: %w", err)
	}

	if err := in.store.MergeReviews(ctx, movie, batch.Reviews); err != nil {
		return fmt.Errorf("save reviews: %w", err)
	}

	summary.Reviews += len(batch.Reviews)

	return nil
}

func (in *Ingester) saveCredits(ctx context.Context, movie models.MovieID, summary *Summary) error {
	credits, err := in.metadata.Credits(ctx, movie.TMDBID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("credits: %w", err)
	}

	var errs []error

	cast := credits.Cast
	if in.maxCast > 0 && len(cast) > in.maxCast {
		cast = cast[:in.maxCast]
	}

	castIDs := make([]int, 0, len(cast))

	for i := range cast {
		cast[i].MovieTMDBID = movie.TMDBID
		castIDs = append(castIDs, cast[i].ID)
	}

	res, err := in.store.SaveCastCredits(ctx, cast)
	summary.CastCredits += res.Inserted
	summary.Duplicates += res.Duplicates

	if err != nil {
		errs = append(errs, fmt.Errorf("save cast: %w", err))
	}

	if err := in.savePeople(ctx, store.ActorDetailsCollection, castIDs, summary); err != nil {
		errs = append(errs, err)
	}

	directors := credits.Directors()
	directorIDs := make([]int, 0, len(directors))

	for i := range directors {
		directors[i].MovieTMDBID = movie.TMDBID
		directorIDs = append(directorIDs, directors[i].ID)
	}

	res, err = in.store.SaveDirectorCredits(ctx, directors)
	summary.DirectorCredits += res.Inserted
	summary.Duplicates += res.Duplicates

	if err != nil {
		errs = append(errs, fmt.Errorf("save directors: %w", err))
	}

	if err := in.savePeople(ctx, store.DirectorDetailsCollection, directorIDs, summary); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// savePeople fetches and stores person details. Unknown people are skipped;
// a failed lookup is reported but does not drop the people already fetched.
func (in *Ingester) savePeople(ctx context.Context, collection string, ids []int, summary *Summary) error {
	var errs []error

	people := make([]models.Person, 0, len(ids))
	seen := make(map[int]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true

		person, err := in.metadata.Person(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			in.log.Debug("person not found", "person_id", id)

			continue
		}

		if err != nil {
			in.log.Warn("failed to fetch person", "person_id", id, "error", err)
			errs = append(errs, fmt.Errorf("person %d: %w", id, err))

			continue
		}

		people = append(people, person)
	}

	res, err := in.store.SavePeople(ctx, collection, people)
	summary.People += res.Inserted
	summary.Duplicates += res.Duplicates

	if err != nil {
		errs = append(errs, fmt.Errorf("save %s: %w", collection, err))
	}

	return errors.Join(errs...)
}

func statusOf(err error) models.Status {
	if errors.Is(err, models.ErrNotFound) {
		return models.StatusNotFound
	}

	return models.StatusFailed
}
