package engine

import (
	"time"

	"moviesync/internal/models"
	"moviesync/pkg/fingerprint"
)

// MutationKind is the type of a store write.
type MutationKind int

// Mutation kinds, in the order they are applied for one movie.
const (
	MergeReviews MutationKind = iota
	PutWatermark
	DeleteEntry
)

// String returns the mutation name.
func (k MutationKind) String() string {
	switch k {
	case MergeReviews:
		return "merge_reviews"
	case PutWatermark:
		return "put_watermark"
	case DeleteEntry:
		return "delete_entry"
	}

	return "unknown"
}

// Mutation is one required write against the document store.
type Mutation struct {
	Entry   models.PopularEntry
	Movie   models.MovieID
	Reviews []models.Review
	Kind    MutationKind
}

// Outcome is the result of processing one movie.
type Outcome struct {
	Reason     error
	Movie      models.MovieID
	Mutations  []Mutation
	Status     models.Status
	NewReviews int
}

// Summary describes one synchronization run.
type Summary struct {
	Outcomes         []Outcome
	Duration         time.Duration
	Candidates       int
	Retained         int
	Entering         int
	Leaving          int
	Succeeded        int
	NotFound         int
	Failed           int
	Deferred         int
	ReviewsMerged    int
	Evicted          int
	EvictionFailures int
}

func (s *Summary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)

	switch o.Status {
	case models.StatusSucceeded:
		s.Succeeded++
		s.ReviewsMerged += o.NewReviews
	case models.StatusNotFound:
		s.NotFound++
	case models.StatusFailed:
		s.Failed++
	}
}

// PlanMutations returns the writes that bring the store in line with a feed
// batch. prior is nil for a movie that has no popular entry yet.
//
//   - new reviews: merge them, then store the batch totals
//   - no new reviews but a non-zero total: store the batch totals only
//   - first-time movie with a zero total: store a zero baseline
//   - tracked movie whose total dropped to zero: store the zero total
//   - otherwise nothing is written
func PlanMutations(movie models.MovieID, prior *models.Watermark, batch *models.ReviewBatch) []Mutation {
	var mutations []Mutation

	reviews := uniqueReviews(batch.Reviews)
	if len(reviews) > 0 {
		mutations = append(mutations, Mutation{Kind: MergeReviews, Movie: movie, Reviews: reviews})
	}

	if len(reviews) > 0 || batch.TotalReviews != 0 || prior == nil || prior.TotalReviews != batch.TotalReviews {
		mutations = append(mutations, Mutation{
			Kind:  PutWatermark,
			Movie: movie,
			Entry: models.PopularEntry{
				MovieID:        movie,
				TotalReviews:   batch.TotalReviews,
				LastDateReview: batch.LastDateReview,
			},
		})
	}

	return mutations
}

// uniqueReviews drops repeated (author, date, text) tuples, keeping the first.
func uniqueReviews(reviews []models.Review) []models.Review {
	if len(reviews) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(reviews))
	out := make([]models.Review, 0, len(reviews))

	for _, r := range reviews {
		if r.Fingerprint == "" {
			r.Fingerprint = fingerprint.Review(r.Author, r.Date, r.Text)
		}

		if seen[r.Fingerprint] {
			continue
		}

		seen[r.Fingerprint] = true
		out = append(out, r)
	}

	return out
}
