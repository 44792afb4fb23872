package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	platformevents "example.com/platform/libs/go/events"
	"example.com/signup/internal/domain"
)

func chessChange(kind domain.ChangeKind, email string) domain.RosterChange {
	return domain.RosterChange{
		Kind: kind,
		Activity: domain.Activity{
			Name:            "Chess Club",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu", email},
		},
		Email:      email,
		OccurredAt: time.Date(2025, time.September, 1, 15, 30, 0, 0, time.UTC),
	}
}

func TestRecorderAppendsSignup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	recorder := NewRecorder(store, "activity_roster_events")

	before := testutil.ToFloat64(appendedCounter.WithLabelValues(platformevents.TypeParticipantSignedUp))

	require.NoError(t, recorder.Record(ctx, chessChange(domain.ChangeSignedUp, "ada@mergington.edu")))

	pending, err := store.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	msg := pending[0]
	_, err = uuid.Parse(msg.EventID)
	require.NoError(t, err)
	require.Equal(t, platformevents.TypeParticipantSignedUp, msg.EventType)
	require.Equal(t, "activity_roster_events", msg.Topic)
	require.Equal(t, "Chess Club", msg.PartitionKey)
	require.JSONEq(t, `{
		"activity": "Chess Club",
		"email": "ada@mergington.edu",
		"participants": 3,
		"max_participants": 12,
		"occurred_at": "2025-09-01T15:30:00Z"
	}`, string(msg.Payload))

	after := testutil.ToFloat64(appendedCounter.WithLabelValues(platformevents.TypeParticipantSignedUp))
	require.InDelta(t, before+1, after, 0.0001)
}

func TestRecorderAppendsRemoval(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	recorder := NewRecorder(store, "activity_roster_events")

	change := chessChange(domain.ChangeRemoved, "ada@mergington.edu")
	change.Activity.Participants = []string{"michael@mergington.edu"}
	require.NoError(t, recorder.Record(ctx, change))

	pending, err := store.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, platformevents.TypeParticipantRemoved, pending[0].EventType)
	require.JSONEq(t, `{
		"activity": "Chess Club",
		"email": "ada@mergington.edu",
		"participants": 1,
		"occurred_at": "2025-09-01T15:30:00Z"
	}`, string(pending[0].Payload))
}

func TestRecorderRejectsUnknownKind(t *testing.T) {
	store := NewMemoryStore()
	recorder := NewRecorder(store, "activity_roster_events")

	err := recorder.Record(context.Background(), chessChange(domain.ChangeKind("renamed"), "ada@mergington.edu"))
	require.ErrorContains(t, err, "unknown roster change kind")
	require.Zero(t, store.Len())
}

func TestRecorderWrapsStoreErrors(t *testing.T) {
	recorder := NewRecorder(failingStore{}, "activity_roster_events")

	err := recorder.Record(context.Background(), chessChange(domain.ChangeSignedUp, "ada@mergington.edu"))
	require.ErrorIs(t, err, errStoreDown)
	require.ErrorContains(t, err, platformevents.TypeParticipantSignedUp)
}

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) Append(context.Context, Message) error { return errStoreDown }

func (failingStore) FetchPending(context.Context, int) ([]Message, error) { return nil, errStoreDown }

func (failingStore) MarkPublished(context.Context, []string) error { return errStoreDown }
