package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// duplicateKeyCodes are the server codes reported for unique index violations.
var duplicateKeyCodes = []int{11000, 11001, 12582}

// InsertResult reports how a partially tolerated bulk insert went.
type InsertResult struct {
	Inserted   int
	Duplicates int
}

// UpsertOne sets fields on the document matching filter, creating it if needed.
func (s *Store) UpsertOne(ctx context.Context, collection string, filter, fields bson.M) error {
	return s.updateOne(ctx, collection, filter, bson.M{"$set": fields})
}

func (s *Store) updateOne(ctx context.Context, collection string, filter, update any) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.Collection(collection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}

	return nil
}

// InsertMany inserts docs unordered. Duplicate-key failures are logged and
// counted; the rest of the batch still commits. Any other write error is
// returned together with the partial result.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []any) (InsertResult, error) {
	if len(docs) == 0 {
		return InsertResult{}, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.Collection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return InsertResult{Inserted: len(docs)}, nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return InsertResult{}, fmt.Errorf("insert into %s: %w", collection, err)
	}

	result := InsertResult{Inserted: len(docs) - len(bulkErr.WriteErrors)}

	var other []mongo.BulkWriteError

	for _, writeErr := range bulkErr.WriteErrors {
		if slices.Contains(duplicateKeyCodes, writeErr.Code) {
			result.Duplicates++

			continue
		}

		other = append(other, writeErr)
	}

	if result.Duplicates > 0 {
		s.log.Info("skipped duplicate records", "collection", collection, "duplicates", result.Duplicates)
	}

	if len(other) > 0 {
		return result, fmt.Errorf("insert into %s: %d of %d records failed: %w", collection, len(other), len(docs), other[0])
	}

	return result, nil
}

// Find decodes every document matching filter into out, a pointer to a slice.
// A nil projection returns whole documents.
func (s *Store) Find(ctx context.Context, collection string, filter, projection, out any) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if projection != nil {
		opts.SetProjection(projection)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find in %s: %w", collection, err)
	}

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}

	return nil
}

// DeleteOne removes the document matching filter and reports whether one existed.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter any) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(collection).DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", collection, err)
	}

	return res.DeletedCount > 0, nil
}

// CollectionNames lists the collections of the database.
func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	names, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	return names, nil
}

// HasCollection reports whether the named collection exists.
func (s *Store) HasCollection(ctx context.Context, name string) (bool, error) {
	names, err := s.CollectionNames(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(names, name), nil
}
