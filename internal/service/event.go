package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
)

const maxCapacity = 100_000

// EventService orchestrates event-related business operations.
type EventService struct {
	events        repository.EventStore
	users         repository.UserStore
	registrations repository.RegistrationStore
	log           *slog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events repository.EventStore,
	users repository.UserStore,
	registrations repository.RegistrationStore,
	log *slog.Logger,
) *EventService {
	return &EventService{events: events, users: users, registrations: registrations, log: log}
}

// CreateEvent validates the request and stores a draft owned by actorID.
func (s *EventService) CreateEvent(ctx context.Context, actorID string, req model.CreateEventRequest) (*model.Event, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, model.Invalid("event title is required")
	}
	if err := validateCapacity(req.Capacity); err != nil {
		return nil, err
	}
	if req.StartsAt.IsZero() {
		return nil, model.Invalid("startsAt is required")
	}

	event := &model.Event{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Category:    strings.TrimSpace(req.Category),
		Tags:        normalizeTags(req.Tags),
		StartsAt:    req.StartsAt.UTC(),
		Capacity:    req.Capacity,
		Status:      model.StatusDraft,
		CreatorID:   actor.ID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.Info("event created",
		slog.String("event_id", event.ID),
		slog.String("creator_id", actor.ID),
		slog.Int("capacity", event.Capacity),
	)
	return event, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.Invalid("event id is required")
	}
	return s.events.FindByID(ctx, id)
}

// ListEvents returns events matching filter. Without a status only
// published events are listed.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.Invalid("unknown status %q", filter.Status)
	}
	return s.events.List(ctx, filter)
}

// UpdateEvent applies a partial update. Only the creator or an admin may
// edit, and capacity may not drop below the current registered count.
func (s *EventService) UpdateEvent(ctx context.Context, actorID, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	event, err := s.events.Update(ctx, eventID, func(e *model.Event) error {
		if err := authorize(actor, e); err != nil {
			return err
		}
		return applyUpdate(e, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated",
		slog.String("event_id", eventID),
		slog.String("actor_id", actor.ID),
	)
	return event, nil
}

// PublishEvent opens a draft for registration.
func (s *EventService) PublishEvent(ctx context.Context, actorID, eventID string) (*model.Event, error) {
	return s.transition(ctx, actorID, eventID, model.StatusPublished)
}

// CancelEvent permanently closes an event.
func (s *EventService) CancelEvent(ctx context.Context, actorID, eventID string) (*model.Event, error) {
	return s.transition(ctx, actorID, eventID, model.StatusCancelled)
}

func (s *EventService) transition(ctx context.Context, actorID, eventID string, next model.EventStatus) (*model.Event, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var prev model.EventStatus
	event, err := s.events.Update(ctx, eventID, func(e *model.Event) error {
		if err := authorize(actor, e); err != nil {
			return err
		}
		if !e.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", model.ErrInvalidTransition, e.Status, next)
		}
		prev = e.Status
		e.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event status changed",
		slog.String("event_id", eventID),
		slog.String("actor_id", actor.ID),
		slog.String("from", string(prev)),
		slog.String("to", string(next)),
	)
	return event, nil
}

// DeleteEvent removes an event. Only the creator or an admin may delete.
func (s *EventService) DeleteEvent(ctx context.Context, actorID, eventID string) error {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	if err := authorize(actor, event); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}

	s.log.Info("event deleted",
		slog.String("event_id", eventID),
		slog.String("actor_id", actor.ID),
	)
	return nil
}

// actor resolves the acting user, which every mutation names explicitly.
func (s *EventService) actor(ctx context.Context, actorID string) (*model.User, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, model.Invalid("acting user id is required")
	}
	u, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func authorize(actor *model.User, e *model.Event) error {
	if actor.IsAdmin() || actor.ID == e.CreatorID {
		return nil
	}
	return model.ErrForbidden
}

func applyUpdate(e *model.Event, req model.UpdateEventRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return model.Invalid("event title cannot be empty")
		}
		e.Title = title
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.Category != nil {
		e.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		e.Tags = normalizeTags(req.Tags)
	}
	if req.StartsAt != nil {
		if req.StartsAt.IsZero() {
			return model.Invalid("startsAt cannot be empty")
		}
		e.StartsAt = req.StartsAt.UTC()
	}
	if req.Capacity != nil {
		if err := validateCapacity(*req.Capacity); err != nil {
			return err
		}
		if *req.Capacity < e.RegisteredCount {
			return fmt.Errorf("%w: %d registered", model.ErrCapacityBelowRegistered, e.RegisteredCount)
		}
		e.Capacity = *req.Capacity
	}
	return nil
}

func validateCapacity(c int) error {
	if c <= 0 {
		return model.Invalid("capacity must be a positive integer")
	}
	if c > maxCapacity {
		return model.Invalid("capacity cannot exceed 100,000")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
