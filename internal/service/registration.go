// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
)

// Recorder receives one observation per registration attempt.
type Recorder interface {
	ObserveRegistration(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRegistration(string) {}

// RegistrationService commits users onto events.
type RegistrationService struct {
	events        repository.EventStore
	users         repository.UserStore
	registrations repository.RegistrationStore
	recorder      Recorder
	log           *slog.Logger
}

// NewRegistrationService constructs a RegistrationService. A nil recorder
// disables metrics.
func NewRegistrationService(
	events repository.EventStore,
	users repository.UserStore,
	registrations repository.RegistrationStore,
	recorder Recorder,
	log *slog.Logger,
) *RegistrationService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RegistrationService{
		events:        events,
		users:         users,
		registrations: registrations,
		recorder:      recorder,
		log:           log,
	}
}

// Register adds userID to the registrants of eventID.
//
// The event lookup and status check give callers ordered, early errors; the
// store's TryAddRegistrant re-checks status, membership and capacity as one
// atomic step, so the answer is correct even when those pre-checks race with
// other writers. A failed call never changes the registrant set.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID string) (*model.EventSnapshot, error) {
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)

	snap, err := s.register(ctx, eventID, userID)

	kind := model.Kind(err)
	s.recorder.ObserveRegistration(kind)
	attrs := []slog.Attr{
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.String("outcome", kind),
	}
	switch {
	case err == nil:
		attrs = append(attrs,
			slog.Int("registered_count", snap.RegisteredCount),
			slog.Int("capacity", snap.Capacity),
		)
		s.log.LogAttrs(ctx, slog.LevelInfo, "registration committed", attrs...)
	case model.Expected(err):
		s.log.LogAttrs(ctx, slog.LevelInfo, "registration rejected", attrs...)
	default:
		attrs = append(attrs, slog.String("error", err.Error()))
		s.log.LogAttrs(ctx, slog.LevelError, "registration failed", attrs...)
	}
	return snap, err
}

func (s *RegistrationService) register(ctx context.Context, eventID, userID string) (*model.EventSnapshot, error) {
	if eventID == "" {
		return nil, model.Invalid("event id is required")
	}
	if userID == "" {
		return nil, model.Invalid("userId is required")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, model.ErrUserNotFound
	}

	if event.Status != model.StatusPublished {
		return nil, model.ErrNotOpen
	}

	return s.registrations.TryAddRegistrant(ctx, eventID, userID)
}

// ListRegistrations returns the registrants of an event.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.registrations.ListByEvent(ctx, eventID)
}
