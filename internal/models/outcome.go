package models

import "errors"

// ErrNotFound marks the expected "title does not exist upstream" outcome.
var ErrNotFound = errors.New("not found")

// Status is the result class of processing one movie.
type Status int

// Processing statuses.
const (
	StatusSucceeded Status = iota
	StatusNotFound
	StatusFailed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	}

	return "unknown"
}
