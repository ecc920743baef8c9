package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesync/internal/models"
	"moviesync/internal/store"
)

var errBoom = errors.New("boom")

type fakeLister struct {
	err      error
	listings []models.MovieListing
	limit    int
}

func (f *fakeLister) ListMovies(_ context.Context, _, _ time.Time, limit int) ([]models.MovieListing, error) {
	f.limit = limit

	return f.listings, f.err
}

type fakeMetadata struct {
	resolveErr map[string]error
	creditsErr map[int]error
	personErr  map[int]error
	credits    map[int]models.Credits
	genresErr  error
	genreCalls int
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		resolveErr: make(map[string]error),
		creditsErr: make(map[int]error),
		personErr:  make(map[int]error),
		credits:    make(map[int]models.Credits),
	}
}

func (f *fakeMetadata) ResolveTMDBID(_ context.Context, imdbID string) (int, error) {
	if err := f.resolveErr[imdbID]; err != nil {
		return 0, err
	}

	var id int

	_, err := fmt.Sscanf(imdbID, "tt%d", &id)

	return id, err
}

func (f *fakeMetadata) MovieDetails(_ context.Context, tmdbID int) (models.MovieDetails, error) {
	return models.MovieDetails{ID: tmdbID, Title: fmt.Sprintf("Movie %d", tmdbID)}, nil
}

func (f *fakeMetadata) Credits(_ context.Context, tmdbID int) (models.Credits, error) {
	if err := f.creditsErr[tmdbID]; err != nil {
		return models.Credits{}, err
	}

	return f.credits[tmdbID], nil
}

func (f *fakeMetadata) Person(_ context.Context, personID int) (models.Person, error) {
	if err := f.personErr[personID]; err != nil {
		return models.Person{}, err
	}

	return models.Person{ID: personID, Name: fmt.Sprintf("Person %d", personID)}, nil
}

func (f *fakeMetadata) Genres(_ context.Context) ([]models.Genre, error) {
	f.genreCalls++

	return []models.Genre{{ID: 18, Name: "Drama"}}, f.genresErr
}

type fakeFeed struct {
	errs    map[string]error
	reviews map[string][]models.Review
}

func (f *fakeFeed) FetchNewReviews(_ context.Context, imdbID string, wm *models.Watermark) (*models.ReviewBatch, error) {
	if wm != nil {
		return nil, errors.New("ingest must not pass a watermark")
	}

	if err := f.errs[imdbID]; err != nil {
		return nil, err
	}

	reviews := f.reviews[imdbID]

	return &models.ReviewBatch{Reviews: reviews, TotalReviews: len(reviews)}, nil
}

type fakeStore struct {
	collections map[string]bool
	details     map[int]models.MovieDetails
	reviews     map[string][]models.Review
	people      map[string][]models.Person
	detailsErr  map[int]error
	cast        []models.CastCredit
	directors   []models.CrewCredit
	genres      []models.Genre
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string]bool),
		details:     make(map[int]models.MovieDetails),
		reviews:     make(map[string][]models.Review),
		people:      make(map[string][]models.Person),
		detailsErr:  make(map[int]error),
	}
}

func (s *fakeStore) HasCollection(_ context.Context, name string) (bool, error) {
	return s.collections[name], nil
}

func (s *fakeStore) SaveGenres(_ context.Context, genres []models.Genre) (store.InsertResult, error) {
	s.genres = append(s.genres, genres...)
	s.collections[store.GenresCollection] = true

	return store.InsertResult{Inserted: len(genres)}, nil
}

func (s *fakeStore) SaveDetails(_ context.Context, details models.MovieDetails) error {
	if err := s.detailsErr[details.ID]; err != nil {
		return err
	}

	s.details[details.ID] = details

	return nil
}

func (s *fakeStore) MergeReviews(_ context.Context, movie models.MovieID, reviews []models.Review) error {
	s.reviews[movie.IMDbID] = append(s.reviews[movie.IMDbID], reviews...)

	return nil
}

func (s *fakeStore) SaveCastCredits(_ context.Context, credits []models.CastCredit) (store.InsertResult, error) {
	s.cast = append(s.cast, credits...)

	return store.InsertResult{Inserted: len(credits)}, nil
}

func (s *fakeStore) SaveDirectorCredits(_ context.Context, credits []models.CrewCredit) (store.InsertResult, error) {
	s.directors = append(s.directors, credits...)

	return store.InsertResult{Inserted: len(credits)}, nil
}

func (s *fakeStore) SavePeople(_ context.Context, collection string, people []models.Person) (store.InsertResult, error) {
	s.people[collection] = append(s.people[collection], people...)

	return store.InsertResult{Inserted: len(people)}, nil
}

type fixture struct {
	lister   *fakeLister
	metadata *fakeMetadata
	feed     *fakeFeed
	store    *fakeStore
}

func newFixture(imdbIDs ...string) *fixture {
	f := &fixture{
		lister:   &fakeLister{},
		metadata: newFakeMetadata(),
		feed:     &fakeFeed{errs: make(map[string]error), reviews: make(map[string][]models.Review)},
		store:    newFakeStore(),
	}

	for i, id := range imdbIDs {
		f.lister.listings = append(f.lister.listings, models.MovieListing{IMDbID: id, Rank: i + 1})
	}

	return f
}

func (f *fixture) ingester(t *testing.T, maxMovies, maxCast int) *Ingester {
	t.Helper()

	in, err := New(Config{
		Lister:         f.lister,
		Metadata:       f.metadata,
		Feed:           f.feed,
		Store:          f.store,
		MaxMovies:      maxMovies,
		MaxCastMembers: maxCast,
	})
	require.NoError(t, err)

	return in
}

func window() (time.Time, time.Time) {
	to := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)

	return to.AddDate(0, 0, -7), to
}

func TestNew_MissingCollaborator(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestRun_StoresEverything(t *testing.T) {
	f := newFixture("tt0000001")
	f.feed.reviews["tt0000001"] = []models.Review{{Author: "alice", Text: "great"}, {Author: "bob", Text: "fine"}}
	f.metadata.credits[1] = models.Credits{
		Cast: []models.CastCredit{
			{ID: 10, Name: "Lead", CreditID: "c10", Order: 0},
			{ID: 11, Name: "Support", CreditID: "c11", Order: 1},
			{ID: 12, Name: "Extra", CreditID: "c12", Order: 2},
		},
		Crew: []models.CrewCredit{
			{ID: 20, Name: "Director", Job: models.DirectorJob, CreditID: "c20"},
			{ID: 21, Name: "Writer", Job: "Screenplay", CreditID: "c21"},
		},
	}

	from, to := window()

	summary, err := f.ingester(t, 50, 2).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 50, f.lister.limit)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Reviews)
	assert.Equal(t, 2, summary.CastCredits, "cast is capped")
	assert.Equal(t, 1, summary.DirectorCredits)
	assert.Equal(t, 3, summary.People)

	assert.Equal(t, "tt0000001", f.store.details[1].IMDbID)
	assert.Len(t, f.store.reviews["tt0000001"], 2)

	for _, c := range f.store.cast {
		assert.Equal(t, 1, c.MovieTMDBID)
	}

	require.Len(t, f.store.directors, 1)
	assert.Equal(t, "Director", f.store.directors[0].Name)
	assert.Equal(t, 1, f.store.directors[0].MovieTMDBID)

	assert.Len(t, f.store.people[store.ActorDetailsCollection], 2)
	assert.Len(t, f.store.people[store.DirectorDetailsCollection], 1)

	assert.Equal(t, 1, f.metadata.genreCalls)
	assert.Len(t, f.store.genres, 1)
}

func TestRun_GenresFetchedOnlyWhenMissing(t *testing.T) {
	f := newFixture()
	f.store.collections[store.GenresCollection] = true

	from, to := window()

	_, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Zero(t, f.metadata.genreCalls)
}

func TestRun_GenreFailureIsNotFatal(t *testing.T) {
	f := newFixture("tt0000001")
	f.metadata.genresErr = errBoom

	from, to := window()

	summary, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRun_NotFoundIsSkipped(t *testing.T) {
	f := newFixture("tt0000001", "tt0000002", "tt0000003")
	f.metadata.resolveErr["tt0000002"] = fmt.Errorf("%w: gone", models.ErrNotFound)

	from, to := window()

	summary, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Listed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.NotFound)
	assert.Zero(t, summary.Failed)
	assert.NotContains(t, f.store.details, 2)
}

func TestRun_FailuresDoNotStopTheLoop(t *testing.T) {
	f := newFixture("tt0000001", "tt0000002", "tt0000003")
	f.metadata.resolveErr["tt0000001"] = errBoom
	f.feed.errs["tt0000002"] = errBoom
	f.feed.reviews["tt0000003"] = []models.Review{{Author: "carol", Text: "ok"}}

	from, to := window()

	summary, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Contains(t, f.store.details, 2, "details saved despite review failure")
	assert.Len(t, f.store.reviews["tt0000003"], 1)
}

func TestRun_MissingReviewPageIsNotAFailure(t *testing.T) {
	f := newFixture("tt0000001")
	f.feed.errs["tt0000001"] = fmt.Errorf("%w: no page", models.ErrNotFound)

	from, to := window()

	summary, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRun_PersonNotFoundIsSkipped(t *testing.T) {
	f := newFixture("tt0000001")
	f.metadata.credits[1] = models.Credits{Cast: []models.CastCredit{{ID: 10, CreditID: "a"}, {ID: 11, CreditID: "b"}}}
	f.metadata.personErr[10] = fmt.Errorf("%w: person", models.ErrNotFound)

	from, to := window()

	summary, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Len(t, f.store.people[store.ActorDetailsCollection], 1)
}

func TestRun_ListingFailureAborts(t *testing.T) {
	f := newFixture()
	f.lister.err = errBoom

	from, to := window()

	_, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	assert.ErrorIs(t, err, errBoom)
}

func TestRun_PersonFailureKeepsFetchedPeople(t *testing.T) {
	f := newFixture("tt0000001")
	f.metadata.credits[1] = models.Credits{Cast: []models.CastCredit{
		{ID: 10, CreditID: "a"},
		{ID: 11, CreditID: "b"},
		{ID: 12, CreditID: "c"},
	}}
	f.metadata.personErr[11] = errBoom

	from, to := window()

	summary, err := f.ingester(t, 0, 0).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.People)

	stored := f.store.people[store.ActorDetailsCollection]
	require.Len(t, stored, 2)
	assert.Equal(t, 10, stored[0].ID)
	assert.Equal(t, 12, stored[1].ID)
}
