package types

import "time"

// Event channels published by the host service.
const (
	ChannelHostRegistered  = "host.registered"
	ChannelHostDeleted     = "host.deleted"
	ChannelRatingSubmitted = "rating.submitted"
)

// HostEvent is published when a host registers or is deleted.
type HostEvent struct {
	HostID     int       `json:"host_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RatingEvent is published when a rating is stored. Consumers that report
// on ratings (averages, counts) build their aggregates from these.
type RatingEvent struct {
	RatingID   int64     `json:"rating_id"`
	HostID     int       `json:"host_id"`
	RaterID    int       `json:"rater_id"`
	Score      int       `json:"score"`
	OccurredAt time.Time `json:"occurred_at"`
}
