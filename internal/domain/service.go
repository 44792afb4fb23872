// Package domain defines the business logic for the activity signup service.
package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/signup/internal/observability"
)

var (
	// ErrActivityNotFound is returned when no activity carries the requested name.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadyRegistered is returned when the email is already on the roster.
	ErrAlreadyRegistered = errors.New("student is already signed up")
	// ErrNotRegistered is returned when removing an email that is not on the roster.
	ErrNotRegistered = errors.New("student is not signed up for this activity")
)

// ChangeKind names a roster transition.
type ChangeKind string

const (
	ChangeSignedUp ChangeKind = "signed_up"
	ChangeRemoved  ChangeKind = "removed"
)

// RosterChange describes a committed roster mutation. Activity is the state
// after the change.
type RosterChange struct {
	Kind       ChangeKind
	Activity   Activity
	Email      string
	OccurredAt time.Time
}

// ActivityRepository captures roster storage operations.
type ActivityRepository interface {
	List(ctx context.Context) ([]Activity, error)
	AddParticipant(ctx context.Context, name, email string) (Activity, error)
	RemoveParticipant(ctx context.Context, name, email string) (Activity, error)
}

// EventRecorder receives committed roster changes, typically to feed an outbox.
type EventRecorder interface {
	Record(ctx context.Context, change RosterChange) error
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, RosterChange) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithEventRecorder routes committed roster changes to recorder.
func WithEventRecorder(recorder EventRecorder) Option {
	return func(s *Service) {
		s.events = recorder
	}
}

// WithLogger overrides the logger used to report recording failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source stamped on roster changes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates roster workflows. Mutations are serialised together with
// their gauge update and event record, so both observe rosters in commit order.
type Service struct {
	writeMu sync.Mutex
	repo    ActivityRepository
	events  EventRecorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		events: noopRecorder{},
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns every activity in catalogue order.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx)
}

// Signup adds email to the named activity's roster.
func (s *Service) Signup(ctx context.Context, name, email string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	activity, err := s.repo.AddParticipant(ctx, name, email)
	if err != nil {
		observability.RecordRosterOutcome("signup", outcomeFor(err))
		return err
	}
	observability.RecordRosterOutcome("signup", "signed_up")

	s.commit(ctx, RosterChange{Kind: ChangeSignedUp, Activity: activity, Email: email, OccurredAt: s.now()})
	return nil
}

// Unenroll removes email from the named activity's roster.
func (s *Service) Unenroll(ctx context.Context, name, email string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	activity, err := s.repo.RemoveParticipant(ctx, name, email)
	if err != nil {
		observability.RecordRosterOutcome("unenroll", outcomeFor(err))
		return err
	}
	observability.RecordRosterOutcome("unenroll", "removed")

	s.commit(ctx, RosterChange{Kind: ChangeRemoved, Activity: activity, Email: email, OccurredAt: s.now()})
	return nil
}

// commit publishes a change that is already visible in the repository, so a
// recorder failure is logged rather than surfaced to the caller.
func (s *Service) commit(ctx context.Context, change RosterChange) {
	observability.SetParticipants(change.Activity.Name, len(change.Activity.Participants))

	if err := s.events.Record(ctx, change); err != nil {
		observability.RecordEventFailure()
		s.logger.Warn("failed to record roster change",
			zap.String("activity", change.Activity.Name),
			zap.String("kind", string(change.Kind)),
			zap.Error(err),
		)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	default:
		return "error"
	}
}
