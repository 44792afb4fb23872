package domain_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/persistence/memory"
)

var fixedNow = time.Date(2025, time.September, 1, 15, 30, 0, 0, time.UTC)

func newService(t *testing.T, recorder domain.EventRecorder) *domain.Service {
	t.Helper()
	repo, err := memory.NewRepository([]domain.Activity{{
		Name:            "Chess Club",
		Description:     "Learn strategies and compete in chess tournaments",
		Schedule:        "Fridays, 3:30 PM - 5:00 PM",
		MaxParticipants: 12,
		Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
	}})
	require.NoError(t, err)

	return domain.NewService(repo,
		domain.WithEventRecorder(recorder),
		domain.WithLogger(zaptest.NewLogger(t)),
		domain.WithClock(func() time.Time { return fixedNow }),
	)
}

func TestSignupRecordsChange(t *testing.T) {
	ctx := context.Background()
	recorder := &stubRecorder{}
	service := newService(t, recorder)

	require.NoError(t, service.Signup(ctx, "Chess Club", "new@mergington.edu"))

	require.Len(t, recorder.changes, 1)
	change := recorder.changes[0]
	require.Equal(t, domain.ChangeSignedUp, change.Kind)
	require.Equal(t, "new@mergington.edu", change.Email)
	require.Equal(t, fixedNow, change.OccurredAt)
	require.Equal(t, "Chess Club", change.Activity.Name)
	require.Len(t, change.Activity.Participants, 3)
}

func TestUnenrollRecordsChange(t *testing.T) {
	ctx := context.Background()
	recorder := &stubRecorder{}
	service := newService(t, recorder)

	require.NoError(t, service.Unenroll(ctx, "Chess Club", "daniel@mergington.edu"))

	require.Len(t, recorder.changes, 1)
	require.Equal(t, domain.ChangeRemoved, recorder.changes[0].Kind)
	require.Equal(t, []string{"michael@mergington.edu"}, recorder.changes[0].Activity.Participants)
}

func TestFailedMutationsRecordNothing(t *testing.T) {
	ctx := context.Background()
	recorder := &stubRecorder{}
	service := newService(t, recorder)

	require.ErrorIs(t, service.Signup(ctx, "Chess Club", "michael@mergington.edu"), domain.ErrAlreadyRegistered)
	require.ErrorIs(t, service.Signup(ctx, "Go Club", "a@mergington.edu"), domain.ErrActivityNotFound)
	require.ErrorIs(t, service.Unenroll(ctx, "Chess Club", "absent@mergington.edu"), domain.ErrNotRegistered)
	require.ErrorIs(t, service.Unenroll(ctx, "Go Club", "michael@mergington.edu"), domain.ErrActivityNotFound)

	require.Empty(t, recorder.changes)
}

func TestBlankEmailIsPassedThrough(t *testing.T) {
	ctx := context.Background()
	recorder := &stubRecorder{}
	service := newService(t, recorder)

	require.NoError(t, service.Signup(ctx, "Chess Club", ""))
	require.NoError(t, service.Signup(ctx, "Chess Club", " "))
	require.ErrorIs(t, service.Signup(ctx, "Chess Club", ""), domain.ErrAlreadyRegistered)
	require.NoError(t, service.Unenroll(ctx, "Chess Club", ""))

	activities, err := service.ListActivities(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu", " "}, activities[0].Participants)
	require.Len(t, recorder.changes, 3)
}

func TestConcurrentSignupsRecordInCommitOrder(t *testing.T) {
	ctx := context.Background()
	recorder := &stubRecorder{}
	service := newService(t, recorder)

	const students = 50
	var wg sync.WaitGroup
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, service.Signup(ctx, "Chess Club", fmt.Sprintf("student%d@mergington.edu", i)))
		}(i)
	}
	wg.Wait()

	require.Len(t, recorder.changes, students)
	for i, change := range recorder.changes {
		require.Len(t, change.Activity.Participants, 3+i)
	}
	require.InDelta(t, 2+students, participantsGauge(t, "Chess Club"), 0.0001)
}

func TestRecorderFailureDoesNotFailSignup(t *testing.T) {
	ctx := context.Background()
	service := newService(t, &stubRecorder{err: errors.New("outbox unavailable")})

	require.NoError(t, service.Signup(ctx, "Chess Club", "new@mergington.edu"))

	activities, err := service.ListActivities(ctx)
	require.NoError(t, err)
	require.Contains(t, activities[0].Participants, "new@mergington.edu")
}

func TestServiceWithoutRecorder(t *testing.T) {
	repo, err := memory.NewRepository([]domain.Activity{{Name: "Art Club"}})
	require.NoError(t, err)
	service := domain.NewService(repo)

	require.NoError(t, service.Signup(context.Background(), "Art Club", "a@mergington.edu"))
}

func TestActivityHelpers(t *testing.T) {
	activity := domain.Activity{Name: "Gym Class", MaxParticipants: 3, Participants: []string{"a@x"}}

	require.True(t, activity.HasParticipant("a@x"))
	require.False(t, activity.HasParticipant("b@x"))
	require.Equal(t, 2, activity.SpotsLeft())

	clone := activity.Clone()
	clone.Participants[0] = "changed@x"
	require.Equal(t, "a@x", activity.Participants[0])
}

type stubRecorder struct {
	mu      sync.Mutex
	changes []domain.RosterChange
	err     error
}

func (r *stubRecorder) Record(_ context.Context, change domain.RosterChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.changes = append(r.changes, change)
	return nil
}

// participantsGauge reads the roster size gauge from the default registry.
func participantsGauge(t *testing.T, activity string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "signup_service_roster_participants" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "activity" && label.GetValue() == activity {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no participants gauge for %q", activity)
	return 0
}
