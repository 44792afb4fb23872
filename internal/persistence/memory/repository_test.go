package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/signup/internal/domain"
)

func fixture() []domain.Activity {
	return []domain.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Art Club",
			MaxParticipants: 15,
		},
	}
}

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(fixture())
	require.NoError(t, err)
	return repo
}

func TestListReturnsSeedOrderAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, "Chess Club", first[0].Name)
	require.Equal(t, "Art Club", first[1].Name)
	require.NotNil(t, first[1].Participants)

	first[0].Participants[0] = "mutated@example.com"
	first[0].Participants = append(first[0].Participants, "extra@example.com")

	second, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, second[0].Participants)
}

func TestSeedIsCopied(t *testing.T) {
	seed := fixture()
	repo, err := NewRepository(seed)
	require.NoError(t, err)

	seed[0].Participants[0] = "changed@example.com"

	activities, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, "michael@mergington.edu", activities[0].Participants[0])
}

func TestAddParticipant(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	updated, err := repo.AddParticipant(ctx, "Chess Club", "new@mergington.edu")
	require.NoError(t, err)
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu", "new@mergington.edu"}, updated.Participants)

	_, err = repo.AddParticipant(ctx, "Chess Club", "new@mergington.edu")
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	_, err = repo.AddParticipant(ctx, "Nope", "new@mergington.edu")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	activities, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, activities[0].Participants, 3)
}

func TestCapacityIsNotEnforced(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepository([]domain.Activity{{Name: "Tiny", MaxParticipants: 1}})
	require.NoError(t, err)

	_, err = repo.AddParticipant(ctx, "Tiny", "a@mergington.edu")
	require.NoError(t, err)
	updated, err := repo.AddParticipant(ctx, "Tiny", "b@mergington.edu")
	require.NoError(t, err)
	require.Equal(t, -1, updated.SpotsLeft())
}

func TestRemoveParticipant(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	updated, err := repo.RemoveParticipant(ctx, "Chess Club", "michael@mergington.edu")
	require.NoError(t, err)
	require.Equal(t, []string{"daniel@mergington.edu"}, updated.Participants)

	_, err = repo.RemoveParticipant(ctx, "Chess Club", "michael@mergington.edu")
	require.ErrorIs(t, err, domain.ErrNotRegistered)

	_, err = repo.RemoveParticipant(ctx, "Nope", "daniel@mergington.edu")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestRemoveKeepsOrderOfRemaining(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepository([]domain.Activity{{
		Name:         "Drama Club",
		Participants: []string{"a@x", "b@x", "c@x", "d@x"},
	}})
	require.NoError(t, err)

	updated, err := repo.RemoveParticipant(ctx, "Drama Club", "b@x")
	require.NoError(t, err)
	require.Equal(t, []string{"a@x", "c@x", "d@x"}, updated.Participants)
}

func TestNewRepositoryRejectsInvalidSeed(t *testing.T) {
	_, err := NewRepository([]domain.Activity{{Name: "A"}, {Name: "A"}})
	require.ErrorContains(t, err, "duplicate seed activity")

	_, err = NewRepository([]domain.Activity{{Name: "  "}})
	require.Error(t, err)

	_, err = NewRepository([]domain.Activity{{Name: "A", Participants: []string{"x@y", "x@y"}}})
	require.ErrorContains(t, err, "duplicate participant")
}

func TestConcurrentSignupsAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AddParticipant(ctx, "Art Club", fmt.Sprintf("student%d@mergington.edu", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	activities, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, activities[1].Participants, workers)
}

func TestConcurrentDuplicateSignupAdmitsOne(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AddParticipant(ctx, "Art Club", "same@mergington.edu"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
}
