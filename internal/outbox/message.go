// Package outbox buffers roster events and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"time"
)

// Message is one pending event in the outbox.
type Message struct {
	EventID      string
	EventType    string
	Topic        string
	PartitionKey string
	Payload      json.RawMessage
	OccurredAt   time.Time
}

// Store persists outbox messages until they are published.
type Store interface {
	Append(ctx context.Context, msg Message) error
	// FetchPending returns up to limit unpublished messages, oldest first.
	FetchPending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, eventIDs []string) error
}
