// Package memory holds the authoritative in-process activity roster.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"example.com/signup/internal/domain"
)

// Repository stores activities in memory. A single RWMutex guards every
// roster; reads hand out deep copies.
type Repository struct {
	mu         sync.RWMutex
	order      []string
	activities map[string]*domain.Activity
}

// NewRepository builds a repository populated with seed. Seed order is kept as
// the catalogue order.
func NewRepository(seed []domain.Activity) (*Repository, error) {
	repo := &Repository{
		order:      make([]string, 0, len(seed)),
		activities: make(map[string]*domain.Activity, len(seed)),
	}
	for _, activity := range seed {
		if strings.TrimSpace(activity.Name) == "" {
			return nil, errors.New("seed activity with empty name")
		}
		if _, exists := repo.activities[activity.Name]; exists {
			return nil, fmt.Errorf("duplicate seed activity %q", activity.Name)
		}
		for i, email := range activity.Participants {
			if slices.Contains(activity.Participants[:i], email) {
				return nil, fmt.Errorf("duplicate participant %q in seed activity %q", email, activity.Name)
			}
		}

		stored := activity.Clone()
		repo.activities[activity.Name] = &stored
		repo.order = append(repo.order, activity.Name)
	}
	return repo, nil
}

// List implements domain.ActivityRepository.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].Clone())
	}
	return out, nil
}

// AddParticipant implements domain.ActivityRepository.
func (r *Repository) AddParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrActivityNotFound, name)
	}
	if activity.HasParticipant(email) {
		return domain.Activity{}, fmt.Errorf("%w: %s in %q", domain.ErrAlreadyRegistered, email, name)
	}

	activity.Participants = append(activity.Participants, email)
	return activity.Clone(), nil
}

// RemoveParticipant implements domain.ActivityRepository.
func (r *Repository) RemoveParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrActivityNotFound, name)
	}
	idx := slices.Index(activity.Participants, email)
	if idx < 0 {
		return domain.Activity{}, fmt.Errorf("%w: %s in %q", domain.ErrNotRegistered, email, name)
	}

	activity.Participants = slices.Delete(activity.Participants, idx, idx+1)
	return activity.Clone(), nil
}
