// Package engine keeps the popular movie set and its review documents in sync
// with the ranking source and the review feed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moviesync/internal/logger"
	"moviesync/internal/models"
)

// Engine errors.
var (
	ErrAdapterFailure      = errors.New("adapter failure")
	ErrStoreFailure        = errors.New("store failure")
	ErrMissingCollaborator = errors.New("missing collaborator")
	ErrInvalidPopularSize  = errors.New("popular size must be positive")
)

// RankingSource produces the ordered candidate set for a release window.
type RankingSource interface {
	TopK(ctx context.Context, from, to time.Time, k int) ([]models.MovieID, error)
}

// MetadataProvider resolves IMDb ids to TMDB ids. A title that does not
// exist is reported with models.ErrNotFound.
type MetadataProvider interface {
	ResolveTMDBID(ctx context.Context, imdbID string) (int, error)
}

// ReviewFeed returns the reviews not yet covered by a watermark.
type ReviewFeed interface {
	FetchNewReviews(ctx context.Context, imdbID string, wm *models.Watermark) (*models.ReviewBatch, error)
}

// Store is the persistence the engine needs.
type Store interface {
	PopularEntries(ctx context.Context) ([]models.PopularEntry, error)
	UpsertPopularEntry(ctx context.Context, entry models.PopularEntry) error
	DeletePopularEntry(ctx context.Context, imdbID string) error
	MergeReviews(ctx context.Context, movie models.MovieID, reviews []models.Review) error
}

// Config holds the engine settings and collaborators.
type Config struct {
	Ranking  RankingSource
	Metadata MetadataProvider
	Feed     ReviewFeed
	Store    Store
	Logger   *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// PopularSize is K, the bound of the popular set.
	PopularSize int
	// CandidatePool is how many ranked titles are requested. 0 means PopularSize.
	CandidatePool int
	ReviewWindow  time.Duration
}

// Engine runs synchronization passes. It is not safe for concurrent runs.
type Engine struct {
	ranking  RankingSource
	metadata MetadataProvider
	feed     ReviewFeed
	store    Store
	log      *logger.Logger
	now      func() time.Time
	k        int
	pool     int
	window   time.Duration
}

// New validates cfg and builds an engine.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Ranking == nil:
		return nil, fmt.Errorf("%w: ranking source", ErrMissingCollaborator)
	case cfg.Metadata == nil:
		return nil, fmt.Errorf("%w: metadata provider", ErrMissingCollaborator)
	case cfg.Feed == nil:
		return nil, fmt.Errorf("%w: review feed", ErrMissingCollaborator)
	case cfg.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingCollaborator)
	case cfg.PopularSize <= 0:
		return nil, ErrInvalidPopularSize
	}

	e := &Engine{
		ranking:  cfg.Ranking,
		metadata: cfg.Metadata,
		feed:     cfg.Feed,
		store:    cfg.Store,
		log:      cfg.Logger,
		now:      cfg.Now,
		k:        cfg.PopularSize,
		pool:     cfg.CandidatePool,
		window:   cfg.ReviewWindow,
	}

	if e.log == nil {
		e.log = logger.Nop()
	}

	if e.now == nil {
		e.now = time.Now
	}

	if e.pool < e.k {
		e.pool = e.k
	}

	return e, nil
}

// Run performs one synchronization pass: retained movies are refreshed first,
// entering movies are admitted until the set holds K entries, and leaving
// entries are deleted last. Per-movie failures are recorded in the summary;
// only a failure to read the ranking or the persisted set aborts the run.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	started := e.now()
	from := started.Add(-e.window)

	candidates, err := e.ranking.TopK(ctx, from, started, e.pool)
	if err != nil {
		return nil, fmt.Errorf("%w: ranking: %w", ErrAdapterFailure, err)
	}

	persisted, err := e.store.PopularEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read popular set: %w", ErrStoreFailure, err)
	}

	plan := Reconcile(candidates, persisted, e.k)

	summary := &Summary{
		Candidates: len(candidates),
		Retained:   len(plan.Retained),
		Entering:   len(plan.Entering),
		Leaving:    len(plan.Leaving),
	}

	e.log.Info("reconciled popular set",
		"candidates", summary.Candidates,
		"retained", summary.Retained,
		"entering", summary.Entering,
		"leaving", summary.Leaving,
	)

	for _, entry := range plan.Retained {
		if err := ctx.Err(); err != nil {
			return e.finish(summary, started), err
		}

		wm := entry.Watermark()
		summary.record(e.process(ctx, entry.MovieID, &wm))
	}

	capacity := plan.Capacity(e.k)
	admitted := 0

	for _, movie := range plan.Entering {
		if admitted >= capacity {
			summary.Deferred++

			continue
		}

		if err := ctx.Err(); err != nil {
			return e.finish(summary, started), err
		}

		outcome := e.process(ctx, movie, nil)
		summary.record(outcome)

		if outcome.Status == models.StatusSucceeded {
			admitted++
		}
	}

	if summary.Deferred > 0 {
		e.log.Info("popular set full", "popular_size", e.k, "deferred", summary.Deferred)
	}

	for _, entry := range plan.Leaving {
		if err := e.apply(ctx, []Mutation{{Kind: DeleteEntry, Movie: entry.MovieID}}); err != nil {
			summary.EvictionFailures++
			e.log.Error("failed to evict movie", "imdb_id", entry.IMDbID, "error", err)

			continue
		}

		summary.Evicted++
		e.log.Info("evicted movie", "imdb_id", entry.IMDbID)
	}

	return e.finish(summary, started), nil
}

func (e *Engine) finish(summary *Summary, started time.Time) *Summary {
	summary.Duration = e.now().Sub(started)

	e.log.Info("sync finished",
		"succeeded", summary.Succeeded,
		"not_found", summary.NotFound,
		"failed", summary.Failed,
		"reviews_merged", summary.ReviewsMerged,
		"evicted", summary.Evicted,
		"duration", summary.Duration,
	)

	return summary
}
