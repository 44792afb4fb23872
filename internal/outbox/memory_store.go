package outbox

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps pending messages in process. Unpublished events are lost on
// restart, like the roster itself.
type MemoryStore struct {
	mu      sync.Mutex
	pending []Message
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
	return nil
}

// FetchPending implements Store.
func (s *MemoryStore) FetchPending(_ context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.pending) {
		limit = len(s.pending)
	}
	out := make([]Message, limit)
	copy(out, s.pending[:limit])
	return out, nil
}

// MarkPublished implements Store.
func (s *MemoryStore) MarkPublished(_ context.Context, eventIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = slices.DeleteFunc(s.pending, func(msg Message) bool {
		return slices.Contains(eventIDs, msg.EventID)
	})
	return nil
}

// Len reports the number of unpublished messages.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
