package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to EventStatus
		want     bool
	}{
		{StatusDraft, StatusPublished, true},
		{StatusDraft, StatusCancelled, true},
		{StatusPublished, StatusCancelled, true},
		{StatusPublished, StatusDraft, false},
		{StatusPublished, StatusPublished, false},
		{StatusCancelled, StatusPublished, false},
		{StatusCancelled, StatusDraft, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.False(t, EventStatus("archived").Valid())
}

func TestEvent_Occupancy(t *testing.T) {
	e := &Event{ID: "e1", Status: StatusPublished, Capacity: 3, RegisteredCount: 2}
	assert.Equal(t, 1, e.Remaining())
	assert.False(t, e.IsFull())

	e.RegisteredCount = 3
	assert.True(t, e.IsFull())
	assert.Equal(t, &EventSnapshot{ID: "e1", Status: StatusPublished, Capacity: 3, RegisteredCount: 3}, e.Snapshot())
}

func TestKind(t *testing.T) {
	tests := []struct {
		err      error
		kind     string
		expected bool
	}{
		{nil, "success", false},
		{Invalid("userId is required"), "invalid_request", true},
		{ErrEventNotFound, "not_found", true},
		{fmt.Errorf("lookup: %w", ErrUserNotFound), "not_found", true},
		{ErrNotOpen, "not_open", true},
		{ErrAlreadyRegistered, "already_registered", true},
		{ErrFull, "full", true},
		{fmt.Errorf("add registrant: %w: dial tcp", ErrUnavailable), "unavailable", false},
		{ErrEmailTaken, "already_exists", true},
		{errors.New("boom"), "internal", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, Kind(tt.err))
		assert.Equal(t, tt.expected, Expected(tt.err), tt.kind)
	}
}
