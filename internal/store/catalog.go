package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"moviesync/internal/models"
)

// SaveGenres inserts the genre list.
func (s *Store) SaveGenres(ctx context.Context, genres []models.Genre) (InsertResult, error) {
	return s.InsertMany(ctx, GenresCollection, toDocs(genres))
}

// SaveDetails stores the details of a movie, replacing an older copy.
func (s *Store) SaveDetails(ctx context.Context, details models.MovieDetails) error {
	fields, err := toFields(details)
	if err != nil {
		return err
	}

	return s.UpsertOne(ctx, DetailsCollection, bson.M{"id": details.ID}, fields)
}

// SaveCastCredits inserts the actor credits of a movie.
func (s *Store) SaveCastCredits(ctx context.Context, credits []models.CastCredit) (InsertResult, error) {
	return s.InsertMany(ctx, ActorCreditsCollection, toDocs(credits))
}

// SaveDirectorCredits inserts the director credits of a movie.
func (s *Store) SaveDirectorCredits(ctx context.Context, credits []models.CrewCredit) (InsertResult, error) {
	return s.InsertMany(ctx, DirectorCreditsCollection, toDocs(credits))
}

// SavePeople inserts person details into collection.
func (s *Store) SavePeople(ctx context.Context, collection string, people []models.Person) (InsertResult, error) {
	return s.InsertMany(ctx, collection, toDocs(people))
}

func toDocs[T any](items []T) []any {
	docs := make([]any, 0, len(items))
	for _, item := range items {
		docs = append(docs, item)
	}

	return docs
}

// toFields converts a tagged struct to a field map for $set.
func toFields(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}

	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	return fields, nil
}
