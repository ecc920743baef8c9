// Package models defines data structures shared by the crawler, the metadata client and the store.
package models

import "fmt"

// MovieID identifies a movie across collections. IMDbID is the natural key.
type MovieID struct {
	IMDbID string `bson:"imdb_id" json:"imdbId"`
	TMDBID int    `bson:"tmdb_id,omitempty" json:"tmdbId,omitempty"`
}

// String returns the IMDb id, with the TMDB id when it is known.
func (m MovieID) String() string {
	if m.TMDBID == 0 {
		return m.IMDbID
	}

	return fmt.Sprintf("%s (tmdb %d)", m.IMDbID, m.TMDBID)
}

// MovieListing is one row of a release-window listing, in ranking order.
type MovieListing struct {
	IMDbID string `json:"imdbId"`
	Title  string `json:"title"`
	Rank   int    `json:"rank"`
}

// Genre represents a TMDB movie genre.
type Genre struct {
	ID   int    `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// MovieDetails holds the TMDB details of a movie.
type MovieDetails struct {
	IMDbID           string  `bson:"imdb_id" json:"imdb_id"`
	Title            string  `bson:"title" json:"title"`
	OriginalTitle    string  `bson:"original_title" json:"original_title"`
	OriginalLanguage string  `bson:"original_language" json:"original_language"`
	Overview         string  `bson:"overview" json:"overview"`
	Tagline          string  `bson:"tagline" json:"tagline"`
	Status           string  `bson:"status" json:"status"`
	ReleaseDate      string  `bson:"release_date" json:"release_date"`
	PosterPath       string  `bson:"poster_path" json:"poster_path"`
	Genres           []Genre `bson:"genres" json:"genres"`
	Popularity       float64 `bson:"popularity" json:"popularity"`
	VoteAverage      float64 `bson:"vote_average" json:"vote_average"`
	ID               int     `bson:"id" json:"id"`
	Runtime          int     `bson:"runtime" json:"runtime"`
	VoteCount        int     `bson:"vote_count" json:"vote_count"`
	Budget           int64   `bson:"budget" json:"budget"`
	Revenue          int64   `bson:"revenue" json:"revenue"`
}
