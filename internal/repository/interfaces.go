// Package repository implements persistence for events, users, registrations
// and the outbox. PostgreSQL implementations use pgx directly (no ORM); the
// in-memory store backs tests and local development.
package repository

import (
	"context"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
)

// EventStore persists event records.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	// Update applies fn to the current record while holding that record's
	// serialization point, then persists the result. If fn returns an error
	// nothing is written.
	Update(ctx context.Context, id string, fn func(e *model.Event) error) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// RegistrationStore owns the registrant set of each event.
type RegistrationStore interface {
	// TryAddRegistrant atomically checks that the event is published, that
	// userID is not yet a registrant and that a seat is free, and if so adds
	// userID. It returns model.ErrEventNotFound, model.ErrNotOpen,
	// model.ErrAlreadyRegistered, model.ErrFull or model.ErrUnavailable.
	TryAddRegistrant(ctx context.Context, eventID, userID string) (*model.EventSnapshot, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	ListEventsByUser(ctx context.Context, userID string) ([]model.Event, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// OutboxStore reads and acknowledges pending integration messages.
type OutboxStore interface {
	ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}
