package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"moviesync/internal/models"
)

// reviewKey is the review document key field.
const reviewKey = "Movie ID"

var popularProjection = bson.M{
	"_id":              0,
	"imdb_id":          1,
	"tmdb_id":          1,
	"total_reviews":    1,
	"last_date_review": 1,
}

// PopularEntries returns the persisted popular set in insertion order.
func (s *Store) PopularEntries(ctx context.Context) ([]models.PopularEntry, error) {
	var entries []models.PopularEntry

	if err := s.Find(ctx, PopularCollection, bson.M{}, popularProjection, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// UpsertPopularEntry replaces the watermark of a popular movie, creating the
// entry when the movie is new to the set.
func (s *Store) UpsertPopularEntry(ctx context.Context, entry models.PopularEntry) error {
	return s.UpsertOne(ctx, PopularCollection,
		bson.M{"imdb_id": entry.IMDbID},
		bson.M{
			"tmdb_id":          entry.TMDBID,
			"total_reviews":    entry.TotalReviews,
			"last_date_review": entry.LastDateReview,
		},
	)
}

// DeletePopularEntry removes a movie from the popular set. Its review
// document is kept.
func (s *Store) DeletePopularEntry(ctx context.Context, imdbID string) error {
	deleted, err := s.DeleteOne(ctx, PopularCollection, bson.M{"imdb_id": imdbID})
	if err != nil {
		return err
	}

	if !deleted {
		s.log.Debug("popular entry already absent", "imdb_id", imdbID)
	}

	return nil
}

// MergeReviews adds reviews to the movie's review document. Reviews already
// stored are left untouched; the document is created on first use.
func (s *Store) MergeReviews(ctx context.Context, movie models.MovieID, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	update := bson.M{
		"$addToSet": bson.M{"Reviews": bson.M{"$each": reviews}},
	}

	if movie.TMDBID != 0 {
		update["$setOnInsert"] = bson.M{"tmdb_id": movie.TMDBID}
	}

	return s.updateOne(ctx, ReviewsCollection, bson.M{reviewKey: movie.IMDbID}, update)
}

// ReviewDocument returns the stored reviews of a movie, or models.ErrNotFound.
func (s *Store) ReviewDocument(ctx context.Context, imdbID string) (*models.ReviewDocument, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc models.ReviewDocument

	err := s.db.Collection(ReviewsCollection).FindOne(ctx, bson.M{reviewKey: imdbID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: reviews of %s", models.ErrNotFound, imdbID)
	}

	if err != nil {
		return nil, fmt.Errorf("find review document %s: %w", imdbID, err)
	}

	return &doc, nil
}
