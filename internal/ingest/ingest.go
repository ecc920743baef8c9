// Package ingest populates the catalog with every movie released in a window:
// details, reviews, cast and directors.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moviesync/internal/logger"
	"moviesync/internal/models"
	"moviesync/internal/store"
)

// ErrMissingCollaborator is returned by New when a dependency is nil.
var ErrMissingCollaborator = errors.New("missing collaborator")

// MovieLister lists the movies released in a window.
type MovieLister interface {
	ListMovies(ctx context.Context, from, to time.Time, limit int) ([]models.MovieListing, error)
}

// MetadataProvider returns movie and people metadata. Unknown ids are
// reported with models.ErrNotFound.
type MetadataProvider interface {
	ResolveTMDBID(ctx context.Context, imdbID string) (int, error)
	MovieDetails(ctx context.Context, tmdbID int) (models.MovieDetails, error)
	Credits(ctx context.Context, tmdbID int) (models.Credits, error)
	Person(ctx context.Context, personID int) (models.Person, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// ReviewFeed returns the reviews of a title.
type ReviewFeed interface {
	FetchNewReviews(ctx context.Context, imdbID string, wm *models.Watermark) (*models.ReviewBatch, error)
}

// Store is the persistence the ingest needs.
type Store interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	SaveGenres(ctx context.Context, genres []models.Genre) (store.InsertResult, error)
	SaveDetails(ctx context.Context, details models.MovieDetails) error
	MergeReviews(ctx context.Context, movie models.MovieID, reviews []models.Review) error
	SaveCastCredits(ctx context.Context, credits []models.CastCredit) (store.InsertResult, error)
	SaveDirectorCredits(ctx context.Context, credits []models.CrewCredit) (store.InsertResult, error)
	SavePeople(ctx context.Context, collection string, people []models.Person) (store.InsertResult, error)
}

// Config holds the ingest limits and collaborators.
type Config struct {
	Lister   MovieLister
	Metadata MetadataProvider
	Feed     ReviewFeed
	Store    Store
	Logger   *logger.Logger
	// MaxMovies caps the listing. 0 means every movie in the window.
	MaxMovies int
	// MaxCastMembers caps the actors stored per movie. 0 means all.
	MaxCastMembers int
}

// Summary describes one ingest run.
type Summary struct {
	Duration        time.Duration
	Listed          int
	Succeeded       int
	NotFound        int
	Failed          int
	Reviews         int
	CastCredits     int
	DirectorCredits int
	People          int
	Duplicates      int
}

// Ingester runs catalog ingests.
type Ingester struct {
	lister    MovieLister
	metadata  MetadataProvider
	feed      ReviewFeed
	store     Store
	log       *logger.Logger
	maxMovies int
	maxCast   int
}

// New validates cfg and builds an ingester.
func New(cfg Config) (*Ingester, error) {
	switch {
	case cfg.Lister == nil:
		return nil, fmt.Errorf("%w: movie lister", ErrMissingCollaborator)
	case cfg.Metadata == nil:
		return nil, fmt.Errorf("%w: metadata provider", ErrMissingCollaborator)
	case cfg.Feed == nil:
		return nil, fmt.Errorf("%w: review feed", ErrMissingCollaborator)
	case cfg.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingCollaborator)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Ingester{
		lister:    cfg.Lister,
		metadata:  cfg.Metadata,
		feed:      cfg.Feed,
		store:     cfg.Store,
		log:       log,
		maxMovies: cfg.MaxMovies,
		maxCast:   cfg.MaxCastMembers,
	}, nil
}

// Run ingests every movie released in [from, to]. A movie that cannot be
// found upstream is skipped; any other per-movie failure is logged and the
// loop moves on. Only a failed listing aborts the run.
func (in *Ingester) Run(ctx context.Context, from, to time.Time) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}

	in.ensureGenres(ctx, summary)

	listings, err := in.lister.ListMovies(ctx, from, to, in.maxMovies)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	summary.Listed = len(listings)
	in.log.Info("ingesting movies", "count", len(listings), "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly))

	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)

			return summary, err
		}

		log := in.log.With("imdb_id", listing.IMDbID)

		status, err := in.ingestMovie(ctx, listing.IMDbID, summary)

		switch status {
		case models.StatusSucceeded:
			summary.Succeeded++
		case models.StatusNotFound:
			summary.NotFound++
			log.Warn("movie not found, skipping", "error", err)
		case models.StatusFailed:
			summary.Failed++
			log.Error("failed to ingest movie", "error", err)
		}
	}

	summary.Duration = time.Since(started)

	in.log.Info("ingest finished",
		"listed", summary.Listed,
		"succeeded", summary.Succeeded,
		"not_found", summary.NotFound,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)

	return summary, nil
}

// ensureGenres fetches the genre list once, when its collection does not exist yet.
func (in *Ingester) ensureGenres(ctx context.Context, summary *Summary) {
	exists, err := in.store.HasCollection(ctx, store.GenresCollection)
	if err != nil {
		in.log.Error("failed to check genre collection", "error", err)

		return
	}

	if exists {
		return
	}

	genres, err := in.metadata.Genres(ctx)
	if err != nil {
		in.log.Error("failed to fetch genres", "error", err)

		return
	}

	res, err := in.store.SaveGenres(ctx, genres)
	summary.Duplicates += res.Duplicates

	if err != nil {
		in.log.Error("failed to save genres", "error", err)

		return
	}

	in.log.Info("genres saved", "count", res.Inserted)
}
