// Package crawler fetches movie listings and user reviews from the review site.
package crawler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"moviesync/internal/models"
	"moviesync/pkg/utils"
)

// ErrNoListingItems is returned when a listing page holds no recognizable titles.
var ErrNoListingItems = errors.New("no listing items found")

// Selectors cover both the current and the legacy page layouts.
const (
	listingItemSelector = "li.ipc-metadata-list-summary-item, div.lister-item"
	titleLinkSelector   = "a[href*='/title/tt']"
	titleTextSelector   = "h3"

	reviewItemSelector   = "article.user-review-item, div.lister-item-content"
	reviewAuthorSelector = "a[data-testid='author-link'], span.display-name-link a"
	reviewDateSelector   = "li.review-date, span.review-date"
	reviewTitleSelector  = "[data-testid='review-summary'], a.title"
	reviewBodySelector   = "div.ipc-html-content-inner-div, div.content div.text"
	reviewRatingSelector = "span.ipc-rating-star--rating, span.rating-other-user-rating span"
	reviewTotalSelector  = "[data-testid='tturv-total-reviews'], div.header div span"
	loadMoreSelector     = "div.load-more-data"
)

var (
	titleIDPattern    = regexp.MustCompile(`/title/(tt\d+)`)
	rankPrefixPattern = regexp.MustCompile(`^\d+\.\s*`)
)

// ReviewPage is one parsed page of a title's review feed, newest first.
type ReviewPage struct {
	NextKey  string
	Reviews  []models.RawReview
	Total    int
	HasTotal bool
}

// Parser extracts listings and reviews from HTML pages.
type Parser struct {
	strings *utils.StringHelper
}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{
		strings: utils.NewStringHelper(),
	}
}

// ParseListing extracts ranked titles from a search results page.
// rankOffset is added to the 1-based position on the page.
func (p *Parser) ParseListing(html string, rankOffset int) ([]models.MovieListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	var listings []models.MovieListing

	seen := make(map[string]bool)

	doc.Find(listingItemSelector).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(titleLinkSelector).First().Attr("href")
		if !ok {
			return
		}

		id := ExtractTitleID(href)
		if id == "" || seen[id] {
			return
		}

		seen[id] = true
		title := p.strings.NormalizeWhitespace(item.Find(titleTextSelector).First().Text())

		listings = append(listings, models.MovieListing{
			IMDbID: id,
			Title:  rankPrefixPattern.ReplaceAllString(title, ""),
			Rank:   rankOffset + len(listings) + 1,
		})
	})

	if len(listings) == 0 {
		return nil, ErrNoListingItems
	}

	return listings, nil
}

// ParseReviewPage extracts raw reviews, the total review count and the
// pagination key from a review page or a "load more" fragment.
func (p *Parser) ParseReviewPage(html string) (*ReviewPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse review HTML: %w", err)
	}

	page := &ReviewPage{}

	if total := doc.Find(reviewTotalSelector).First(); total.Length() > 0 {
		page.Total, page.HasTotal = p.strings.ParseCount(total.Text())
	}

	if key, ok := doc.Find(loadMoreSelector).First().Attr("data-key"); ok {
		page.NextKey = strings.TrimSpace(key)
	}

	doc.Find(reviewItemSelector).Each(func(_ int, item *goquery.Selection) {
		body, _ := item.Find(reviewBodySelector).First().Html()

		page.Reviews = append(page.Reviews, models.RawReview{
			Author:     p.strings.NormalizeWhitespace(item.Find(reviewAuthorSelector).First().Text()),
			DateText:   p.strings.NormalizeWhitespace(item.Find(reviewDateSelector).First().Text()),
			Title:      item.Find(reviewTitleSelector).First().Text(),
			Body:       body,
			RatingText: p.strings.NormalizeWhitespace(item.Find(reviewRatingSelector).First().Text()),
		})
	})

	return page, nil
}

// ExtractTitleID returns the tt-prefixed id inside a title URL, or "".
func ExtractTitleID(href string) string {
	match := titleIDPattern.FindStringSubmatch(href)
	if len(match) < 2 {
		return ""
	}

	return match[1]
}
