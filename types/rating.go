package types

import "time"

// Rating bounds.
const (
	MinRatingScore   = 1
	MaxRatingScore   = 5
	MaxRatingComment = 1000
)

// Rating represents feedback recorded against a host.
// Ratings are never mutated once stored.
type Rating struct {
	// ID is the unique identifier of the rating.
	ID int64 `json:"id" db:"id"`

	// HostID identifies the rated host.
	HostID int `json:"host_id" db:"host_id"`

	// RaterID identifies the host who submitted the rating.
	RaterID int `json:"rater_id" db:"rater_id"`

	// Score is the rating value, between MinRatingScore and MaxRatingScore.
	Score int `json:"score" db:"score"`

	// Comment is optional free text.
	Comment string `json:"comment,omitempty" db:"comment"`

	// CreatedAt is the timestamp when the rating was submitted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RatingInput is the submission body for a rating.
type RatingInput struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}
