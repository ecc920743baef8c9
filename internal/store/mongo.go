// Package store persists the catalog, the popular set and review documents in MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"moviesync/internal/logger"
)

// Collection names.
const (
	PopularCollection         = "top_popular_movies"
	ReviewsCollection         = "movie_reviews"
	GenresCollection          = "movie_genres"
	DetailsCollection         = "movie_details"
	ActorCreditsCollection    = "movie_actor_credits"
	ActorDetailsCollection    = "actor_details"
	DirectorCreditsCollection = "movie_director_credits"
	DirectorDetailsCollection = "director_details"
)

// ErrMissingURI is returned by Connect when no connection string is given.
var ErrMissingURI = errors.New("mongo URI is required")

// Options configures store timeouts.
type Options struct {
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// Store wraps one MongoDB database.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	log       *logger.Logger
	opTimeout time.Duration
}

// Connect opens a client, pings the primary and returns a store on dbName.
func Connect(ctx context.Context, uri, dbName string, opts Options, log *logger.Logger) (*Store, error) {
	if uri == "" {
		return nil, ErrMissingURI
	}

	connectCtx := ctx

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc

		connectCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	clientOpts := options.Client().ApplyURI(uri)
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout).SetServerSelectionTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := New(client.Database(dbName), log)
	s.client = client
	s.opTimeout = opts.OperationTimeout

	return s, nil
}

// New wraps an existing database handle. The caller owns its client.
func New(db *mongo.Database, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}

	return &Store{
		db:  db,
		log: log.With("component", "store", "database", db.Name()),
	}
}

// Close disconnects the client opened by Connect.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	return s.client.Disconnect(ctx)
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.opTimeout)
}
