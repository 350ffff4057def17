package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/logger"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
)

type fixture struct {
	store         *repository.MemoryStore
	users         repository.UserStore
	events        *EventService
	registrations *RegistrationService
	people        *UserService
	recorder      *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	users := store.Users()
	log := logger.Discard()
	rec := &countingRecorder{counts: make(map[string]int)}
	return &fixture{
		store:         store,
		users:         users,
		events:        NewEventService(store, users, store, log),
		registrations: NewRegistrationService(store, users, store, rec, log),
		people:        NewUserService(users, store, log),
		recorder:      rec,
	}
}

func (f *fixture) user(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()
	u, err := f.people.CreateUser(context.Background(), model.CreateUserRequest{
		Name:  name,
		Email: name + "@example.org",
		Role:  role,
	})
	require.NoError(t, err)
	return u
}

// publishedEvent creates and publishes an event owned by a fresh organizer.
func (f *fixture) publishedEvent(t *testing.T, capacity int) *model.Event {
	t.Helper()
	ctx := context.Background()
	owner := f.user(t, "organizer-"+time.Now().Format("150405.000000000"), model.RoleUser)
	e, err := f.events.CreateEvent(ctx, owner.ID, model.CreateEventRequest{
		Title:    "Neighbourhood potluck",
		Category: "Social",
		StartsAt: time.Now().Add(72 * time.Hour),
		Capacity: capacity,
	})
	require.NoError(t, err)
	e, err = f.events.PublishEvent(ctx, owner.ID, e.ID)
	require.NoError(t, err)
	return e
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveRegistration(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[outcome]++
}

func (r *countingRecorder) get(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[outcome]
}
