package models

import "time"

// RawReview is a user review as scraped from a review page, before normalization.
type RawReview struct {
	Author     string `validate:"required"`
	DateText   string `validate:"required"`
	Title      string
	Body       string `validate:"required"`
	RatingText string
}

// Review is a normalized user review. Its identity is (Author, Date, Text);
// Fingerprint is derived from that tuple.
type Review struct {
	Date        time.Time `bson:"date" json:"date"`
	Rating      *int      `bson:"rating,omitempty" json:"rating,omitempty"`
	Author      string    `bson:"author" json:"author"`
	Title       string    `bson:"title,omitempty" json:"title,omitempty"`
	Text        string    `bson:"text" json:"text"`
	Fingerprint string    `bson:"fingerprint" json:"fingerprint"`
}

// ReviewDocument holds every stored review of one movie.
type ReviewDocument struct {
	IMDbID  string   `bson:"Movie ID" json:"movieId"`
	TMDBID  int      `bson:"tmdb_id,omitempty" json:"tmdbId,omitempty"`
	Reviews []Review `bson:"Reviews" json:"reviews"`
}

// Watermark records how much of a movie's review feed is already stored.
type Watermark struct {
	LastDateReview *time.Time `json:"lastDateReview"`
	TotalReviews   int        `json:"totalReviews"`
}

// ReviewBatch is what the review feed returns for one fetch: the reviews not
// yet reflected in the supplied watermark plus the provider's current totals.
type ReviewBatch struct {
	LastDateReview *time.Time
	Reviews        []Review
	TotalReviews   int
}

// Watermark returns the watermark the batch advances to.
func (b *ReviewBatch) Watermark() Watermark {
	return Watermark{TotalReviews: b.TotalReviews, LastDateReview: b.LastDateReview}
}

// PopularEntry is one tracked movie of the popular set.
type PopularEntry struct {
	LastDateReview *time.Time `bson:"last_date_review" json:"lastDateReview"`
	MovieID        `bson:",inline"`
	TotalReviews   int `bson:"total_reviews" json:"totalReviews"`
}

// Watermark returns the entry's synchronization watermark.
func (e PopularEntry) Watermark() Watermark {
	return Watermark{TotalReviews: e.TotalReviews, LastDateReview: e.LastDateReview}
}
