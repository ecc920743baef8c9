package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"moviesync/internal/config"
	"moviesync/internal/crawler"
	"moviesync/internal/engine"
	"moviesync/internal/ingest"
	"moviesync/internal/metrics"
	"moviesync/internal/report"
	"moviesync/internal/store"
	"moviesync/internal/task"
	"moviesync/internal/tmdb"
)

// app holds the collaborators shared by the commands.
type app struct {
	store    *store.Store
	engine   *engine.Engine
	ingester *ingest.Ingester
	metrics  *metrics.Recorder
	runner   *task.Runner
	out      io.Writer
}

// newApp connects to the store and builds the engine and the ingester.
func newApp(ctx context.Context) (*app, error) {
	secrets, err := config.LoadSecrets(envFile)
	if err != nil {
		return nil, err
	}

	crawlerClient, err := crawler.NewClient(cfg.Crawler)
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}

	metadata, err := tmdb.New(cfg.TMDB, secrets.TMDBAPIKey, log.With("component", "tmdb"))
	if err != nil {
		return nil, fmt.Errorf("tmdb: %w", err)
	}

	db, err := store.Connect(ctx, secrets.MongoURI, secrets.DatabaseName(), store.Options{
		ConnectTimeout:   cfg.ConnectTimeout(),
		OperationTimeout: cfg.OperationTimeout(),
	}, log)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)

		return nil, err
	}

	crawlLog := log.With("component", "crawler")
	feed := crawler.NewReviewFeed(crawlerClient, cfg.Crawler.MaxReviewPages, crawlLog)
	lister := crawler.NewMovieLister(crawlerClient, cfg.Crawler.ListingPageSize, crawlLog)

	eng, err := engine.New(engine.Config{
		Ranking:       crawler.NewRankingSource(lister),
		Metadata:      metadata,
		Feed:          feed,
		Store:         db,
		Logger:        log.With("component", "engine"),
		PopularSize:   cfg.Sync.PopularSize,
		CandidatePool: cfg.CandidatePoolSize(),
		ReviewWindow:  cfg.ReviewWindow(),
	})
	if err != nil {
		_ = db.Close(ctx)

		return nil, err
	}

	ingester, err := ingest.New(ingest.Config{
		Lister:         lister,
		Metadata:       metadata,
		Feed:           feed,
		Store:          db,
		Logger:         log.With("component", "ingest"),
		MaxMovies:      cfg.Ingest.MaxMovies,
		MaxCastMembers: cfg.Ingest.MaxCastMembers,
	})
	if err != nil {
		_ = db.Close(ctx)

		return nil, err
	}

	return &app{
		store:    db,
		engine:   eng,
		ingester: ingester,
		metrics:  metrics.NewRecorder(),
		runner:   task.NewRunner(cfg.Tasks, log),
		out:      os.Stdout,
	}, nil
}

// sync runs one popular-set synchronization as a retried task.
func (a *app) sync(ctx context.Context) error {
	return a.runner.Run(ctx, "sync_popular_reviews", func(ctx context.Context) error {
		summary, err := a.engine.Run(ctx)
		if err != nil {
			return err
		}

		a.metrics.ObserveSync(summary)

		return report.Sync(a.out, summary)
	})
}

// ingest runs one catalog ingest of [from, to] as a retried task.
func (a *app) ingest(ctx context.Context, from, to time.Time) error {
	return a.runner.Run(ctx, "ingest_movies", func(ctx context.Context) error {
		summary, err := a.ingester.Run(ctx, from, to)
		if err != nil {
			return err
		}

		a.metrics.ObserveIngest(summary)

		return report.Ingest(a.out, summary, from, to)
	})
}

// close pushes the run metrics and disconnects from the store.
func (a *app) close(ctx context.Context) {
	err := a.metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, runID)

	switch {
	case errors.Is(err, metrics.ErrMissingGateway):
		log.Debug("metrics push disabled")
	case err != nil:
		log.Warn("failed to push metrics", "error", err)
	}

	if err := a.store.Close(ctx); err != nil {
		log.Warn("failed to disconnect from store", "error", err)
	}
}

// withApp builds the app, runs fn and releases the app.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ConnectTimeout())
		defer cancel()

		a.close(closeCtx)
	}()

	return fn(ctx, a)
}
