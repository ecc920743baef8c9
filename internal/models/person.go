package models

// DirectorJob is the crew job kept by the catalog ingest.
const DirectorJob = "Director"

// Person represents the TMDB details of an actor or director.
type Person struct {
	Name               string  `bson:"name" json:"name"`
	IMDbID             string  `bson:"imdb_id" json:"imdb_id"`
	Birthday           string  `bson:"birthday,omitempty" json:"birthday"`
	Deathday           string  `bson:"deathday,omitempty" json:"deathday"`
	PlaceOfBirth       string  `bson:"place_of_birth,omitempty" json:"place_of_birth"`
	Biography          string  `bson:"biography" json:"biography"`
	KnownForDepartment string  `bson:"known_for_department" json:"known_for_department"`
	ProfilePath        string  `bson:"profile_path,omitempty" json:"profile_path"`
	Popularity         float64 `bson:"popularity" json:"popularity"`
	ID                 int     `bson:"id" json:"id"`
	Gender             int     `bson:"gender" json:"gender"`
}

// CastCredit is an actor credit of a movie.
type CastCredit struct {
	CreditID    string `bson:"credit_id" json:"credit_id"`
	Name        string `bson:"name" json:"name"`
	Character   string `bson:"character" json:"character"`
	ID          int    `bson:"id" json:"id"`
	Order       int    `bson:"order" json:"order"`
	MovieTMDBID int    `bson:"movie_tmdb_id" json:"-"`
}

// CrewCredit is a crew credit of a movie.
type CrewCredit struct {
	CreditID    string `bson:"credit_id" json:"credit_id"`
	Name        string `bson:"name" json:"name"`
	Job         string `bson:"job" json:"job"`
	Department  string `bson:"department" json:"department"`
	ID          int    `bson:"id" json:"id"`
	MovieTMDBID int    `bson:"movie_tmdb_id" json:"-"`
}

// Credits groups the cast and crew of a movie.
type Credits struct {
	Cast []CastCredit `json:"cast"`
	Crew []CrewCredit `json:"crew"`
}

// Directors returns the crew members whose job is Director.
func (c Credits) Directors() []CrewCredit {
	var directors []CrewCredit

	for _, member := range c.Crew {
		if member.Job == DirectorJob {
			directors = append(directors, member)
		}
	}

	return directors
}
