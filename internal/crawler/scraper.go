package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"moviesync/internal/config"
	"moviesync/internal/models"
	"moviesync/pkg/utils"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Scraper handles page fetching with config-driven retry logic.
type Scraper struct {
	client       *http.Client
	headers      *utils.HTTPHelper
	retryPolicy  config.RetryPolicy
	bufferSizeKb int
}

// NewScraperWithConfig creates a new scraper from crawler settings.
func NewScraperWithConfig(cfg config.CrawlerConfig) *Scraper {
	bufferSizeKb := cfg.BufferSizeKb
	if bufferSizeKb <= 0 {
		bufferSizeKb = 1024
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Retry.GetTimeout(),
		},
		headers:      utils.NewHTTPHelper(cfg.UserAgent),
		retryPolicy:  cfg.Retry,
		bufferSizeKb: bufferSizeKb,
	}
}

// ScrapeWithMetrics returns (content, statusCode, duration, error).
// A 404 response is reported as models.ErrNotFound and is not retried.
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string) (string, int, time.Duration, error) {
	var lastErr error

	var lastStatusCode int

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return "", lastStatusCode, totalDuration, err
			}
		}

		startTime := time.Now()
		body, statusCode, err := s.fetch(ctx, url)
		totalDuration += time.Since(startTime)
		lastStatusCode = statusCode

		if err == nil {
			return body, statusCode, totalDuration, nil
		}

		lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, s.retryPolicy.MaxAttempts, err)

		if ctx.Err() != nil {
			return "", lastStatusCode, totalDuration, ctx.Err()
		}

		// Only retry on transport errors and temporary statuses
		if statusCode != 0 && !isRetryableStatus(statusCode) {
			break
		}
	}

	return "", lastStatusCode, totalDuration, lastErr
}

// Scrape fetches and returns content from the given URL.
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	content, _, _, err := s.ScrapeWithMetrics(ctx, url)

	return content, err
}

// fetch performs one GET. statusCode is 0 when no response was received.
func (s *Scraper) fetch(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	// Browser-like headers to avoid being blocked
	req.Header = s.headers.BuildHeaders(nil)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", resp.StatusCode, fmt.Errorf("%w: %s", models.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return "", resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// bufferSizeKb is in KB, convert to bytes
	limit := int64(s.bufferSizeKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), resp.StatusCode, nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusBadGateway,
		http.StatusInternalServerError,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout:
		return true
	}

	return false
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
