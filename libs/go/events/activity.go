// Package events defines shared cross-service event payloads.
package events

import "time"

// Event types carried in the event_type header of roster messages.
const (
	TypeParticipantSignedUp = "roster.participant_signed_up"
	TypeParticipantRemoved  = "roster.participant_removed"
)

// ParticipantSignedUp is emitted when an email is added to an activity roster.
type ParticipantSignedUp struct {
	Activity     string    `json:"activity"`
	Email        string    `json:"email"`
	Participants int       `json:"participants"`
	Capacity     int       `json:"max_participants"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ParticipantRemoved is emitted when an email leaves an activity roster.
type ParticipantRemoved struct {
	Activity     string    `json:"activity"`
	Email        string    `json:"email"`
	Participants int       `json:"participants"`
	OccurredAt   time.Time `json:"occurred_at"`
}
