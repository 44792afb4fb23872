package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	platformevents "example.com/platform/libs/go/events"
	"example.com/signup/internal/domain"
)

// Recorder turns committed roster changes into outbox messages. It implements
// domain.EventRecorder.
type Recorder struct {
	store Store
	topic string
}

// NewRecorder constructs a Recorder appending to store for the given topic.
func NewRecorder(store Store, topic string) *Recorder {
	return &Recorder{store: store, topic: topic}
}

// Record implements domain.EventRecorder.
func (r *Recorder) Record(ctx context.Context, change domain.RosterChange) error {
	eventType, payload, err := encodeChange(change)
	if err != nil {
		return err
	}

	msg := Message{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		Topic:        r.topic,
		PartitionKey: change.Activity.Name,
		Payload:      payload,
		OccurredAt:   change.OccurredAt,
	}
	if err := r.store.Append(ctx, msg); err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	appendedCounter.WithLabelValues(eventType).Inc()
	return nil
}

func encodeChange(change domain.RosterChange) (string, json.RawMessage, error) {
	var (
		eventType string
		body      interface{}
	)
	switch change.Kind {
	case domain.ChangeSignedUp:
		eventType = platformevents.TypeParticipantSignedUp
		body = platformevents.ParticipantSignedUp{
			Activity:     change.Activity.Name,
			Email:        change.Email,
			Participants: len(change.Activity.Participants),
			Capacity:     change.Activity.MaxParticipants,
			OccurredAt:   change.OccurredAt,
		}
	case domain.ChangeRemoved:
		eventType = platformevents.TypeParticipantRemoved
		body = platformevents.ParticipantRemoved{
			Activity:     change.Activity.Name,
			Email:        change.Email,
			Participants: len(change.Activity.Participants),
			OccurredAt:   change.OccurredAt,
		}
	default:
		return "", nil, fmt.Errorf("unknown roster change kind %q", change.Kind)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return eventType, payload, nil
}
