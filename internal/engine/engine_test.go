package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesync/internal/models"
)

type harness struct {
	ranking  *fakeRanking
	metadata *fakeMetadata
	feed     *remoteFeed
	store    *memStore
	engine   *Engine
}

func newHarness(t *testing.T, k int, candidates ...string) *harness {
	t.Helper()

	h := &harness{
		ranking:  &fakeRanking{},
		metadata: &fakeMetadata{errs: make(map[string]error)},
		feed:     newRemoteFeed(),
		store:    newMemStore(),
	}
	h.setCandidates(candidates...)

	now := time.Date(2024, time.March, 20, 6, 0, 0, 0, time.UTC)

	eng, err := New(Config{
		Ranking:      h.ranking,
		Metadata:     h.metadata,
		Feed:         h.feed,
		Store:        h.store,
		PopularSize:  k,
		ReviewWindow: 7 * 24 * time.Hour,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)

	h.engine = eng

	return h
}

func (h *harness) setCandidates(ids ...string) {
	h.ranking.candidates = nil
	for _, id := range ids {
		h.ranking.candidates = append(h.ranking.candidates, movie(id))
	}
}

func (h *harness) run(t *testing.T) *Summary {
	t.Helper()

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)

	return summary
}

func TestNew_Validation(t *testing.T) {
	valid := Config{
		Ranking:     &fakeRanking{},
		Metadata:    &fakeMetadata{},
		Feed:        newRemoteFeed(),
		Store:       newMemStore(),
		PopularSize: 10,
	}

	tests := []struct {
		mutate func(c *Config)
		want   error
		name   string
	}{
		{func(c *Config) { c.Ranking = nil }, ErrMissingCollaborator, "ranking"},
		{func(c *Config) { c.Metadata = nil }, ErrMissingCollaborator, "metadata"},
		{func(c *Config) { c.Feed = nil }, ErrMissingCollaborator, "feed"},
		{func(c *Config) { c.Store = nil }, ErrMissingCollaborator, "store"},
		{func(c *Config) { c.PopularSize = 0 }, ErrInvalidPopularSize, "popular size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			_, err := New(cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	eng, err := New(valid)
	require.NoError(t, err)
	assert.Equal(t, 10, eng.pool, "candidate pool defaults to K")
}

func TestRun_EndToEndScenario(t *testing.T) {
	h := newHarness(t, 10, "tt0000001", "tt0000002")
	h.feed.publish("tt0000001", review("alice", 12, "great"), review("bob", 10, "fine"), review("carol", 9, "meh"))

	summary := h.run(t)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 3, summary.ReviewsMerged)

	assert.Len(t, h.store.reviews["tt0000001"], 3)
	assert.NotContains(t, h.store.reviews, "tt0000002", "no review document without reviews")

	m1 := h.store.popular["tt0000001"]
	assert.Equal(t, 3, m1.TotalReviews)
	require.NotNil(t, m1.LastDateReview)
	assert.Equal(t, day(12), *m1.LastDateReview)
	assert.Equal(t, 1001, m1.TMDBID)

	m2, ok := h.store.popular["tt0000002"]
	require.True(t, ok, "zero-review movie still gets a baseline entry")
	assert.Equal(t, 0, m2.TotalReviews)
	assert.Nil(t, m2.LastDateReview)
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t, 10, "tt0000001", "tt0000002", "tt0000003")
	h.feed.publish("tt0000001", review("alice", 12, "great"), review("bob", 10, "fine"))
	h.feed.publish("tt0000003", review("carol", 11, "ok"))

	h.run(t)
	first := h.store.snapshot()

	summary := h.run(t)
	second := h.store.snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, 0, summary.ReviewsMerged)
	assert.Equal(t, 3, summary.Retained)
	assert.Equal(t, 0, summary.Entering)
}

func TestRun_NoDuplicateReviewsAcrossRuns(t *testing.T) {
	h := newHarness(t, 10, "tt0000001")

	batches := [][]models.Review{
		{review("a", 1, "one"), review("b", 1, "two")},
		{review("c", 2, "three")},
		{review("d", 3, "four"), review("e", 3, "five"), review("f", 4, "six")},
	}

	expected := 0

	for _, batch := range batches {
		h.feed.publish("tt0000001", batch...)
		expected += len(batch)

		h.run(t)
	}

	stored := h.store.reviews["tt0000001"]
	assert.Len(t, stored, expected)

	seen := make(map[string]bool)
	for _, r := range stored {
		key := fmt.Sprintf("%s|%s|%s", r.Author, r.Date.Format(time.DateOnly), r.Text)
		assert.False(t, seen[key], "duplicate review %s", key)
		seen[key] = true
	}

	assert.Equal(t, expected, h.store.popular["tt0000001"].TotalReviews)
}

func TestRun_BoundedPopularSet(t *testing.T) {
	h := newHarness(t, 3, "tt0000001", "tt0000002", "tt0000003", "tt0000004", "tt0000005", "tt0000006")

	summary := h.run(t)

	assert.Len(t, h.store.popular, 3)
	assert.Equal(t, []string{"tt0000001", "tt0000002", "tt0000003"}, h.store.ids())
	assert.Equal(t, 3, summary.Deferred)
	assert.Zero(t, h.feed.calls["tt0000004"], "deferred movies are not fetched")

	// A larger pool on the next run still cannot grow the set.
	h.setCandidates("tt0000009", "tt0000008", "tt0000001", "tt0000002", "tt0000003", "tt0000007")
	h.run(t)

	assert.Len(t, h.store.popular, 3)
}

func TestRun_Eviction(t *testing.T) {
	h := newHarness(t, 10, "tt0000002", "tt0000003", "tt0000004")
	h.store.seed(
		models.PopularEntry{MovieID: models.MovieID{IMDbID: "tt0000001", TMDBID: 1001}, TotalReviews: 1},
		models.PopularEntry{MovieID: models.MovieID{IMDbID: "tt0000002", TMDBID: 1002}},
		models.PopularEntry{MovieID: models.MovieID{IMDbID: "tt0000003", TMDBID: 1003}},
	)
	h.store.reviews["tt0000001"] = []models.Review{review("old", 1, "kept")}

	summary := h.run(t)

	assert.Equal(t, []string{"tt0000002", "tt0000003", "tt0000004"}, h.store.ids())
	assert.Equal(t, 1, summary.Evicted)
	assert.Len(t, h.store.reviews["tt0000001"], 1, "review document survives eviction")
	assert.Zero(t, h.feed.calls["tt0000001"], "leaving movies are not fetched")
}

func TestRun_RetainedUseStoredIDs(t *testing.T) {
	h := newHarness(t, 10, "tt0000001")
	h.store.seed(models.PopularEntry{MovieID: models.MovieID{IMDbID: "tt0000001", TMDBID: 55}})

	h.run(t)

	assert.Zero(t, h.metadata.calls, "stored TMDB id is reused")
	assert.Equal(t, 55, h.store.popular["tt0000001"].TMDBID)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	h := newHarness(t, 10, "tt0000001", "tt0000002", "tt0000003")
	h.feed.publish("tt0000001", review("a", 1, "x"))
	h.feed.publish("tt0000002", review("b", 1, "y"))
	h.feed.publish("tt0000003", review("c", 1, "z"))
	h.feed.errs["tt0000002"] = errBoom

	summary := h.run(t)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"tt0000001", "tt0000003"}, h.store.ids())
	assert.NotContains(t, h.store.reviews, "tt0000002")

	var failed Outcome

	for _, o := range summary.Outcomes {
		if o.Status == models.StatusFailed {
			failed = o
		}
	}

	assert.Equal(t, "tt0000002", failed.Movie.IMDbID)
	assert.ErrorIs(t, failed.Reason, ErrAdapterFailure)
	assert.ErrorIs(t, failed.Reason, errBoom)
}

func TestRun_FailedEnteringDoesNotUseCapacity(t *testing.T) {
	h := newHarness(t, 2, "tt0000001", "tt0000002", "tt0000003")
	h.feed.errs["tt0000001"] = errBoom

	summary := h.run(t)

	assert.Equal(t, []string{"tt0000002", "tt0000003"}, h.store.ids())
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Deferred)
}

func TestRun_WatermarkRefreshWithoutNewReviews(t *testing.T) {
	h := newHarness(t, 10, "tt0000001")

	for i := 1; i <= 5; i++ {
		h.feed.publish("tt0000001", review(fmt.Sprintf("user%d", i), i, "text"))
	}

	last := day(5)
	h.store.seed(models.PopularEntry{
		MovieID:        models.MovieID{IMDbID: "tt0000001", TMDBID: 1001},
		TotalReviews:   5,
		LastDateReview: &last,
	})

	summary := h.run(t)

	assert.Equal(t, 1, h.store.upserts, "watermark is rewritten")
	assert.Zero(t, h.store.merges, "review document is untouched")
	assert.Zero(t, h.store.deletes)
	assert.Equal(t, 0, summary.ReviewsMerged)

	entry := h.store.popular["tt0000001"]
	assert.Equal(t, 5, entry.TotalReviews)
	require.NotNil(t, entry.LastDateReview)
	assert.Equal(t, last, *entry.LastDateReview)
}

func TestRun_UnresolvableTitleIsSkipped(t *testing.T) {
	h := newHarness(t, 10, "tt0000001", "tt0000002")
	h.metadata.errs["tt0000001"] = fmt.Errorf("%w: no movie", models.ErrNotFound)

	summary := h.run(t)

	assert.Equal(t, 1, summary.NotFound)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, []string{"tt0000002"}, h.store.ids())
	assert.Zero(t, h.feed.calls["tt0000001"])
}

func TestRun_MetadataFailure(t *testing.T) {
	h := newHarness(t, 10, "tt0000001")
	h.metadata.errs["tt0000001"] = errBoom

	summary := h.run(t)

	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, h.store.popular)
}

func TestRun_StoreFailureKeepsWatermark(t *testing.T) {
	h := newHarness(t, 10, "tt0000001", "tt0000002")
	h.feed.publish("tt0000001", review("a", 1, "x"))
	h.feed.publish("tt0000002", review("b", 1, "y"))
	h.store.failMerge["tt0000001"] = errBoom

	summary := h.run(t)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.ReviewsMerged)
	assert.NotContains(t, h.store.popular, "tt0000001", "watermark not written after failed merge")
	assert.Contains(t, h.store.popular, "tt0000002")

	for _, o := range summary.Outcomes {
		if o.Movie.IMDbID == "tt0000001" {
			assert.ErrorIs(t, o.Reason, ErrStoreFailure)
		}
	}

	// The next run picks the movie up again from scratch.
	delete(h.store.failMerge, "tt0000001")
	h.run(t)

	assert.Len(t, h.store.reviews["tt0000001"], 1)
	assert.Equal(t, 1, h.store.popular["tt0000001"].TotalReviews)
}

func TestRun_EvictionFailureIsCounted(t *testing.T) {
	h := newHarness(t, 10, "tt0000002")
	h.store.seed(
		models.PopularEntry{MovieID: models.MovieID{IMDbID: "tt0000001", TMDBID: 1001}},
		models.PopularEntry{MovieID: models.MovieID{IMDbID: "tt0000003", TMDBID: 1003}},
	)
	h.store.failDelete["tt0000001"] = errBoom

	summary := h.run(t)

	assert.Equal(t, 1, summary.EvictionFailures)
	assert.Equal(t, 1, summary.Evicted)
	assert.Equal(t, []string{"tt0000001", "tt0000002"}, h.store.ids())
}

func TestRun_FatalErrors(t *testing.T) {
	t.Run("ranking", func(t *testing.T) {
		h := newHarness(t, 10)
		h.ranking.err = errBoom

		_, err := h.engine.Run(context.Background())
		assert.ErrorIs(t, err, ErrAdapterFailure)
	})

	t.Run("popular set", func(t *testing.T) {
		h := newHarness(t, 10, "tt0000001")
		h.store.failEntries = errBoom

		_, err := h.engine.Run(context.Background())
		assert.ErrorIs(t, err, ErrStoreFailure)
		assert.Zero(t, h.feed.calls["tt0000001"])
	})
}

func TestRun_CanceledContextStopsBeforeNextMovie(t *testing.T) {
	h := newHarness(t, 10, "tt0000001", "tt0000002")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.engine.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, summary)
	assert.Empty(t, summary.Outcomes)
	assert.Empty(t, h.store.popular)
}

func TestRun_RequestsCandidatePool(t *testing.T) {
	h := newHarness(t, 10)
	h.engine.pool = 25

	h.run(t)

	assert.Equal(t, 25, h.ranking.lastK)
}
