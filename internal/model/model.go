// Package model defines the core domain types for the community events platform.
package model

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an event in status s may move to next.
// Cancelled is terminal.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPublished || next == StatusCancelled
	case StatusPublished:
		return next == StatusCancelled
	}
	return false
}

// Role distinguishes members from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Event is a community activity that members can register for.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags"`
	StartsAt        time.Time   `json:"startsAt"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registeredCount"`
	Status          EventStatus `json:"status"`
	CreatorID       string      `json:"creatorId"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Remaining returns the number of open seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// Snapshot returns the occupancy view of the event.
func (e *Event) Snapshot() *EventSnapshot {
	return &EventSnapshot{
		ID:              e.ID,
		Status:          e.Status,
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
	}
}

// EventSnapshot is the occupancy of an event as of a registration commit.
type EventSnapshot struct {
	ID              string      `json:"id"`
	Status          EventStatus `json:"status"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registeredCount"`
}

// EventFilter narrows ListEvents. An empty Status means published only;
// an empty Category or "all" means any category.
type EventFilter struct {
	Status   EventStatus
	Category string
}

// User is a platform member. Only existence matters to registration.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user has administrator rights.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Registration is one member of an event's registrant set.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	StartsAt    time.Time `json:"startsAt"`
	Capacity    int       `json:"capacity"`
}

// UpdateEventRequest is a partial update; nil fields are left unchanged.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	Category    *string    `json:"category"`
	Tags        []string   `json:"tags"`
	StartsAt    *time.Time `json:"startsAt"`
	Capacity    *int       `json:"capacity"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	UserID string `json:"userId"`
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegistrationCreated is the outbox payload written with every committed
// registration.
type RegistrationCreated struct {
	EventID         string    `json:"eventId"`
	UserID          string    `json:"userId"`
	RegisteredCount int       `json:"registeredCount"`
	Capacity        int       `json:"capacity"`
	RegisteredAt    time.Time `json:"registeredAt"`
}

// EventTypeRegistrationCreated tags outbox rows for committed registrations.
const EventTypeRegistrationCreated = "registration_created"

// OutboxEvent is a pending or published integration message.
type OutboxEvent struct {
	ID          int64      `json:"id"`
	AggregateID string     `json:"aggregateId"`
	EventType   string     `json:"eventType"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt"`
}
