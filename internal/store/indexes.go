package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// uniqueKeys lists the natural key of each collection. The genre collection is
// left out: its absence is what triggers the one-time genre fetch.
var uniqueKeys = []struct {
	collection string
	field      string
}{
	{PopularCollection, "imdb_id"},
	{ReviewsCollection, reviewKey},
	{DetailsCollection, "id"},
	{ActorDetailsCollection, "id"},
	{DirectorDetailsCollection, "id"},
	{ActorCreditsCollection, "credit_id"},
	{DirectorCreditsCollection, "credit_id"},
}

// EnsureIndexes creates the unique indexes the upserts and duplicate-tolerant
// inserts rely on. Existing indexes are left as they are.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, key := range uniqueKeys {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: key.field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}

		opCtx, cancel := s.opContext(ctx)
		_, err := s.db.Collection(key.collection).Indexes().CreateOne(opCtx, model)
		cancel()

		if err != nil {
			return fmt.Errorf("create unique index on %s.%s: %w", key.collection, key.field, err)
		}
	}

	s.log.Debug("indexes ensured", "count", len(uniqueKeys))

	return nil
}
