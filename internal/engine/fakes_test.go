package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"moviesync/internal/models"
	"moviesync/pkg/fingerprint"
)

var errBoom = errors.New("boom")

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func review(author string, d int, text string) models.Review {
	date := day(d)

	return models.Review{
		Author:      author,
		Date:        date,
		Text:        text,
		Fingerprint: fingerprint.Review(author, date, text),
	}
}

func movie(imdbID string) models.MovieID {
	return models.MovieID{IMDbID: imdbID}
}

// fakeRanking returns a fixed candidate list.
type fakeRanking struct {
	err        error
	candidates []models.MovieID
	lastK      int
}

func (f *fakeRanking) TopK(_ context.Context, _, _ time.Time, k int) ([]models.MovieID, error) {
	f.lastK = k

	if f.err != nil {
		return nil, f.err
	}

	return f.candidates, nil
}

// fakeMetadata resolves tt-ids to a derived TMDB id unless told otherwise.
type fakeMetadata struct {
	errs  map[string]error
	calls int
}

func (f *fakeMetadata) ResolveTMDBID(_ context.Context, imdbID string) (int, error) {
	f.calls++

	if err := f.errs[imdbID]; err != nil {
		return 0, err
	}

	var id int
	if _, err := fmt.Sscanf(imdbID, "tt%d", &id); err != nil {
		return 0, fmt.Errorf("%w: %s", models.ErrNotFound, imdbID)
	}

	return id + 1000, nil
}

// remoteFeed mimics the review site: each title has a newest-first list of
// reviews and the feed returns the part a watermark does not cover.
type remoteFeed struct {
	reviews map[string][]models.Review
	errs    map[string]error
	calls   map[string]int
}

func newRemoteFeed() *remoteFeed {
	return &remoteFeed{
		reviews: make(map[string][]models.Review),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// publish adds reviews on top of the title's feed.
func (f *remoteFeed) publish(imdbID string, reviews ...models.Review) {
	f.reviews[imdbID] = append(slices.Clone(reviews), f.reviews[imdbID]...)
}

func (f *remoteFeed) FetchNewReviews(_ context.Context, imdbID string, wm *models.Watermark) (*models.ReviewBatch, error) {
	f.calls[imdbID]++

	if err := f.errs[imdbID]; err != nil {
		return nil, err
	}

	all := f.reviews[imdbID]
	total := len(all)

	if wm != nil {
		delta := total - wm.TotalReviews
		if delta <= 0 {
			return &models.ReviewBatch{TotalReviews: total, LastDateReview: wm.LastDateReview}, nil
		}

		all = all[:delta]
	}

	batch := &models.ReviewBatch{Reviews: slices.Clone(all), TotalReviews: total}

	switch {
	case len(all) > 0:
		latest := all[0].Date
		batch.LastDateReview = &latest
	case wm != nil:
		batch.LastDateReview = wm.LastDateReview
	}

	return batch, nil
}

// memStore is an in-memory document store with $addToSet semantics for reviews.
type memStore struct {
	popular     map[string]models.PopularEntry
	reviews     map[string][]models.Review
	failMerge   map[string]error
	failUpsert  map[string]error
	failDelete  map[string]error
	failEntries error
	order       []string
	merges      int
	upserts     int
	deletes     int
}

func newMemStore() *memStore {
	return &memStore{
		popular:    make(map[string]models.PopularEntry),
		reviews:    make(map[string][]models.Review),
		failMerge:  make(map[string]error),
		failUpsert: make(map[string]error),
		failDelete: make(map[string]error),
	}
}

func (s *memStore) seed(entries ...models.PopularEntry) {
	for _, e := range entries {
		s.order = append(s.order, e.IMDbID)
		s.popular[e.IMDbID] = e
	}
}

func (s *memStore) PopularEntries(_ context.Context) ([]models.PopularEntry, error) {
	if s.failEntries != nil {
		return nil, s.failEntries
	}

	entries := make([]models.PopularEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.popular[id])
	}

	return entries, nil
}

func (s *memStore) UpsertPopularEntry(_ context.Context, entry models.PopularEntry) error {
	s.upserts++

	if err := s.failUpsert[entry.IMDbID]; err != nil {
		return err
	}

	if _, ok := s.popular[entry.IMDbID]; !ok {
		s.order = append(s.order, entry.IMDbID)
	}

	if entry.LastDateReview != nil {
		d := *entry.LastDateReview
		entry.LastDateReview = &d
	}

	s.popular[entry.IMDbID] = entry

	return nil
}

func (s *memStore) DeletePopularEntry(_ context.Context, imdbID string) error {
	s.deletes++

	if err := s.failDelete[imdbID]; err != nil {
		return err
	}

	delete(s.popular, imdbID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == imdbID })

	return nil
}

func (s *memStore) MergeReviews(_ context.Context, m models.MovieID, reviews []models.Review) error {
	s.merges++

	if err := s.failMerge[m.IMDbID]; err != nil {
		return err
	}

	stored := s.reviews[m.IMDbID]

	for _, r := range reviews {
		if !slices.ContainsFunc(stored, func(have models.Review) bool { return sameReview(have, r) }) {
			stored = append(stored, r)
		}
	}

	s.reviews[m.IMDbID] = stored

	return nil
}

func sameReview(a, b models.Review) bool {
	sameRating := (a.Rating == nil && b.Rating == nil) ||
		(a.Rating != nil && b.Rating != nil && *a.Rating == *b.Rating)

	return sameRating && a.Author == b.Author && a.Date.Equal(b.Date) &&
		a.Text == b.Text && a.Title == b.Title && a.Fingerprint == b.Fingerprint
}

type storeSnapshot struct {
	Reviews map[string][]models.Review
	Popular []models.PopularEntry
}

func (s *memStore) snapshot() storeSnapshot {
	entries, _ := s.PopularEntries(context.Background())

	snap := storeSnapshot{
		Popular: make([]models.PopularEntry, 0, len(entries)),
		Reviews: make(map[string][]models.Review, len(s.reviews)),
	}

	for _, e := range entries {
		if e.LastDateReview != nil {
			d := *e.LastDateReview
			e.LastDateReview = &d
		}

		snap.Popular = append(snap.Popular, e)
	}

	for id, reviews := range s.reviews {
		snap.Reviews[id] = slices.Clone(reviews)
	}

	return snap
}

func (s *memStore) ids() []string {
	out := slices.Clone(s.order)
	slices.Sort(out)

	return out
}
