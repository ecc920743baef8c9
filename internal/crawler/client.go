package crawler

import (
	"context"
	"fmt"
	"time"

	"moviesync/internal/config"
	"moviesync/internal/models"
)

// Client fetches and parses listing and review pages.
type Client struct {
	scraper *Scraper
	parser  *Parser
	urls    *URLBuilder
}

// NewClient creates a crawler client from crawler settings.
func NewClient(cfg config.CrawlerConfig) (*Client, error) {
	urls, err := NewURLBuilder(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	return NewClientWithDeps(NewScraperWithConfig(cfg), NewParser(), urls), nil
}

// NewClientWithDeps creates a new crawler client with injected dependencies.
func NewClientWithDeps(scraper *Scraper, parser *Parser, urls *URLBuilder) *Client {
	return &Client{
		scraper: scraper,
		parser:  parser,
		urls:    urls,
	}
}

// ListingPage fetches one page of the release-window listing.
// start is the 1-based rank of the first item on the page.
func (c *Client) ListingPage(ctx context.Context, from, to time.Time, count, start int) ([]models.MovieListing, error) {
	content, err := c.scraper.Scrape(ctx, c.urls.ListingURL(from, to, count, start))
	if err != nil {
		return nil, fmt.Errorf("failed to scrape listing page: %w", err)
	}

	listings, err := c.parser.ParseListing(content, start-1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	return listings, nil
}

// ReviewPage fetches one page of a title's review feed.
func (c *Client) ReviewPage(ctx context.Context, imdbID, paginationKey string) (*ReviewPage, error) {
	content, err := c.scraper.Scrape(ctx, c.urls.ReviewsURL(imdbID, paginationKey))
	if err != nil {
		return nil, fmt.Errorf("failed to scrape reviews of %s: %w", imdbID, err)
	}

	page, err := c.parser.ParseReviewPage(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reviews of %s: %w", imdbID, err)
	}

	return page, nil
}
