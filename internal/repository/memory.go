package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
)

// MemoryStore is an in-process EventStore, RegistrationStore and UserStore.
// Each event record carries its own mutex, which is the serialization point
// for that event's registrant set.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*memEvent
	users  map[string]model.User
	emails map[string]string
	now    func() time.Time
}

type memEvent struct {
	mu          sync.Mutex
	deleted     bool
	event       model.Event
	registrants map[string]model.Registration
	order       []string
}

// view returns a copy of the event whose registered count is derived from
// the registrant set. Must be called with m.mu held.
func (m *memEvent) view() model.Event {
	e := m.event
	e.Tags = slices.Clone(m.event.Tags)
	e.RegisteredCount = len(m.registrants)
	return e
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*memEvent),
		users:  make(map[string]model.User),
		emails: make(map[string]string),
		now:    utcNow,
	}
}

func (s *MemoryStore) record(id string) (*memEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.events[id]
	return rec, ok
}

// Create stores a new event.
func (s *MemoryStore) Create(_ context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	e.RegisteredCount = 0
	if e.Tags == nil {
		e.Tags = []string{}
	}

	rec := &memEvent{
		event:       *e,
		registrants: make(map[string]model.Registration),
	}
	rec.event.Tags = slices.Clone(e.Tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return model.ErrAlreadyExists
	}
	s.events[e.ID] = rec
	return nil
}

// FindByID returns a copy of the event or model.ErrEventNotFound.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.Event, error) {
	rec, ok := s.record(id)
	if !ok {
		return nil, model.ErrEventNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, model.ErrEventNotFound
	}
	e := rec.view()
	return &e, nil
}

// List returns events matching filter ordered by start time.
func (s *MemoryStore) List(_ context.Context, filter model.EventFilter) ([]model.Event, error) {
	status, category := normalizeFilter(filter)
	return s.collect(func(rec *memEvent) bool {
		return rec.event.Status == status && (category == "" || rec.event.Category == category)
	}), nil
}

// Update applies fn to a copy of the event under the record lock.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(e *model.Event) error) (*model.Event, error) {
	rec, ok := s.record(id)
	if !ok {
		return nil, model.ErrEventNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, model.ErrEventNotFound
	}

	next := rec.view()
	if err := fn(&next); err != nil {
		return nil, err
	}
	if next.Capacity < len(rec.registrants) {
		return nil, model.ErrCapacityBelowRegistered
	}
	next.ID = rec.event.ID
	next.CreatorID = rec.event.CreatorID
	next.CreatedAt = rec.event.CreatedAt
	next.UpdatedAt = s.now()

	rec.event = next
	rec.event.Tags = slices.Clone(next.Tags)
	out := rec.view()
	return &out, nil
}

// Delete removes an event and its registrations.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.events[id]
	if !ok {
		return model.ErrEventNotFound
	}
	rec.mu.Lock()
	rec.deleted = true
	rec.mu.Unlock()
	delete(s.events, id)
	return nil
}

// TryAddRegistrant checks and inserts under the record lock.
func (s *MemoryStore) TryAddRegistrant(_ context.Context, eventID, userID string) (*model.EventSnapshot, error) {
	rec, ok := s.record(eventID)
	if !ok {
		return nil, model.ErrEventNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	switch {
	case rec.deleted:
		return nil, model.ErrEventNotFound
	case rec.event.Status != model.StatusPublished:
		return nil, model.ErrNotOpen
	}
	if _, dup := rec.registrants[userID]; dup {
		return nil, model.ErrAlreadyRegistered
	}
	if len(rec.registrants) >= rec.event.Capacity {
		return nil, model.ErrFull
	}

	now := s.now()
	rec.registrants[userID] = model.Registration{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now,
	}
	rec.order = append(rec.order, userID)
	rec.event.UpdatedAt = now

	e := rec.view()
	return e.Snapshot(), nil
}

// ListByEvent returns registrations in the order they were committed.
func (s *MemoryStore) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	rec, ok := s.record(eventID)
	if !ok {
		return nil, model.ErrEventNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, model.ErrEventNotFound
	}

	regs := make([]model.Registration, 0, len(rec.order))
	for _, uid := range rec.order {
		regs = append(regs, rec.registrants[uid])
	}
	return regs, nil
}

// ListEventsByUser returns every event userID is registered for.
func (s *MemoryStore) ListEventsByUser(_ context.Context, userID string) ([]model.Event, error) {
	return s.collect(func(rec *memEvent) bool {
		_, ok := rec.registrants[userID]
		return ok
	}), nil
}

// collect returns views of every live record matching keep, sorted by
// start time. keep runs with the record lock held.
func (s *MemoryStore) collect(keep func(rec *memEvent) bool) []model.Event {
	s.mu.RLock()
	recs := make([]*memEvent, 0, len(s.events))
	for _, rec := range s.events {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	var out []model.Event
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.deleted && keep(rec) {
			out = append(out, rec.view())
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

// RegistrantIDs returns the registrant set of an event in commit order.
func (s *MemoryStore) RegistrantIDs(eventID string) []string {
	rec, ok := s.record(eventID)
	if !ok {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return slices.Clone(rec.order)
}

// CreateUser stores a user, returning model.ErrEmailTaken on a duplicate email.
func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return model.ErrEmailTaken
	}
	if _, ok := s.users[u.ID]; ok {
		return model.ErrAlreadyExists
	}
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

// FindUser returns a user or model.ErrUserNotFound.
func (s *MemoryStore) FindUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

// UserExists reports whether id names a stored user.
func (s *MemoryStore) UserExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

// Users adapts the store to the UserStore interface.
func (s *MemoryStore) Users() UserStore {
	return memUsers{s}
}

type memUsers struct{ s *MemoryStore }

func (u memUsers) Create(ctx context.Context, user *model.User) error {
	return u.s.CreateUser(ctx, user)
}

func (u memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.s.FindUser(ctx, id)
}

func (u memUsers) Exists(ctx context.Context, id string) (bool, error) {
	return u.s.UserExists(ctx, id)
}

var (
	_ EventStore        = (*MemoryStore)(nil)
	_ RegistrationStore = (*MemoryStore)(nil)
	_ UserStore         = memUsers{}
	_ EventStore        = (*EventRepository)(nil)
	_ RegistrationStore = (*RegistrationRepository)(nil)
	_ UserStore         = (*UserRepository)(nil)
	_ OutboxStore       = (*OutboxRepository)(nil)
)
