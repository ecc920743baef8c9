// Package tmdb is a rate-limited client for the TMDB v3 REST API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"moviesync/internal/config"
	"moviesync/internal/logger"
	"moviesync/internal/models"
)

// Client errors.
var (
	// ErrNotFound is the distinguished "unknown title or person" outcome.
	ErrNotFound         = models.ErrNotFound
	ErrMissingAPIKey    = errors.New("TMDB API key is required")
	ErrUnexpectedStatus = errors.New("unexpected TMDB status")
)

// Client calls the TMDB API. Every request waits on a shared rate limiter.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
	baseURL    string
	apiKey     string
	language   string
	retry      config.RetryPolicy
}

// New creates a client from TMDB settings.
func New(cfg config.TMDBConfig, apiKey string, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if log == nil {
		log = logger.Nop()
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Retry.GetTimeout()},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		log:        log,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     apiKey,
		language:   cfg.Language,
		retry:      cfg.Retry,
	}, nil
}

type findResponse struct {
	MovieResults []struct {
		ID int `json:"id"`
	} `json:"movie_results"`
}

type genreList struct {
	Genres []models.Genre `json:"genres"`
}

// ResolveTMDBID maps an IMDb title id to its TMDB movie id.
func (c *Client) ResolveTMDBID(ctx context.Context, imdbID string) (int, error) {
	var resp findResponse

	query := url.Values{}
	query.Set("external_source", "imdb_id")

	if err := c.get(ctx, "/find/"+url.PathEscape(imdbID), query, &resp); err != nil {
		return 0, err
	}

	if len(resp.MovieResults) == 0 || resp.MovieResults[0].ID == 0 {
		return 0, fmt.Errorf("%w: no movie for %s", ErrNotFound, imdbID)
	}

	return resp.MovieResults[0].ID, nil
}

// MovieDetails returns the details of a movie.
func (c *Client) MovieDetails(ctx context.Context, tmdbID int) (models.MovieDetails, error) {
	var details models.MovieDetails

	err := c.get(ctx, "/movie/"+strconv.Itoa(tmdbID), nil, &details)

	return details, err
}

// Credits returns the cast and crew of a movie.
func (c *Client) Credits(ctx context.Context, tmdbID int) (models.Credits, error) {
	var credits models.Credits

	err := c.get(ctx, "/movie/"+strconv.Itoa(tmdbID)+"/credits", nil, &credits)

	return credits, err
}

// Person returns the details of an actor or crew member.
func (c *Client) Person(ctx context.Context, personID int) (models.Person, error) {
	var person models.Person

	err := c.get(ctx, "/person/"+strconv.Itoa(personID), nil, &person)

	return person, err
}

// Genres returns the movie genre list.
func (c *Client) Genres(ctx context.Context) ([]models.Genre, error) {
	var list genreList

	if err := c.get(ctx, "/genre/movie/list", nil, &list); err != nil {
		return nil, err
	}

	return list.Genres, nil
}

// get performs a GET with retries and decodes the JSON body into out.
// 404 is returned as ErrNotFound without retrying.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}

	query.Set("api_key", c.apiKey)

	if c.language != "" {
		query.Set("language", c.language)
	}

	endpoint := c.baseURL + path + "?" + query.Encode()

	var lastErr error

	attempts := c.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, c.retry.GetRetryDelay(attempt)); err != nil {
				return err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		retryable, err := c.do(ctx, endpoint, out)
		if err == nil {
			return nil
		}

		lastErr = fmt.Errorf("GET %s (attempt %d/%d): %w", path, attempt, attempts, err)

		if !retryable || ctx.Err() != nil {
			return lastErr
		}

		c.log.Debug("retrying TMDB request", "path", path, "attempt", attempt, "error", err)
	}

	return lastErr
}

// do performs one request and reports whether a failure may be retried.
func (c *Client) do(ctx context.Context, endpoint string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return false, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
