package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for malformed or missing input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotOpen is returned when registering for an event that is not published.
	ErrNotOpen = errors.New("event is not open for registration")
	// ErrAlreadyRegistered is returned when the user is already a registrant.
	ErrAlreadyRegistered = errors.New("user already registered for this event")
	// ErrFull is returned when an event has no remaining capacity.
	ErrFull = errors.New("event is fully booked")
	// ErrUnavailable is returned when the store could not be reached; the
	// effect of the call is unknown and it is safe to retry.
	ErrUnavailable = errors.New("store unavailable")

	// ErrForbidden is returned when the actor is neither the creator nor an admin.
	ErrForbidden = errors.New("not authorized")
	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCapacityBelowRegistered is returned when capacity would drop below the registered count.
	ErrCapacityBelowRegistered = errors.New("capacity cannot be lower than the registered count")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

var (
	// ErrEventNotFound is ErrNotFound for events.
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	// ErrUserNotFound is ErrNotFound for users.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrEmailTaken is ErrAlreadyExists for user emails.
	ErrEmailTaken = fmt.Errorf("email %w", ErrAlreadyExists)
)

// Invalid wraps ErrInvalidRequest with a caller-facing reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Kind names the taxonomy bucket of err, for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotOpen):
		return "not_open"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrFull):
		return "full"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrCapacityBelowRegistered):
		return "capacity_below_registered"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	}
	return "internal"
}

// Expected reports whether err is a caller-recoverable outcome rather than
// a system fault.
func Expected(err error) bool {
	switch Kind(err) {
	case "success", "unavailable", "internal":
		return false
	}
	return true
}
