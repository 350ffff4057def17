package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/logger"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/metrics"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemoryStore()
	users := store.Users()
	log := logger.Discard()
	m := metrics.New()

	eventSvc := service.NewEventService(store, users, store, log)
	regSvc := service.NewRegistrationService(store, users, store, m, log)
	userSvc := service.NewUserService(users, store, log)

	router := NewRouter(
		NewEventHandler(eventSvc, regSvc, log),
		NewUserHandler(userSvc, log),
		m.Handler(),
		log,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, actor string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createUser(t *testing.T, srv *httptest.Server, name string, role model.Role) model.User {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/users", "", model.CreateUserRequest{
		Name: name, Email: name + "@example.org", Role: role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.User](t, resp)
}

func createPublishedEvent(t *testing.T, srv *httptest.Server, owner string, capacity int) model.Event {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/events", owner, model.CreateEventRequest{
		Title:    "Community clean-up",
		Category: "Volunteering",
		StartsAt: time.Date(2026, 11, 21, 8, 0, 0, 0, time.UTC),
		Capacity: capacity,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decode[model.Event](t, resp)
	assert.Equal(t, model.StatusDraft, e.Status)

	resp = do(t, srv, http.MethodPost, "/events/"+e.ID+"/publish", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[model.Event](t, resp)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestRegister_Scenario(t *testing.T) {
	srv := newTestServer(t)
	owner := createUser(t, srv, "owner", model.RoleUser)
	u1 := createUser(t, srv, "u1", model.RoleUser)
	u2 := createUser(t, srv, "u2", model.RoleUser)
	u3 := createUser(t, srv, "u3", model.RoleUser)
	e := createPublishedEvent(t, srv, owner.ID, 2)
	path := "/events/" + e.ID + "/register"

	resp := do(t, srv, http.MethodPost, path, "", model.RegisterRequest{UserID: u1.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decode[model.EventSnapshot](t, resp)
	assert.Equal(t, 1, snap.RegisteredCount)
	assert.Equal(t, 2, snap.Capacity)

	resp = do(t, srv, http.MethodPost, path, "", model.RegisterRequest{UserID: u1.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrAlreadyRegistered.Error(), decode[model.ErrorResponse](t, resp).Error)

	resp = do(t, srv, http.MethodPost, path, "", model.RegisterRequest{UserID: u2.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, decode[model.EventSnapshot](t, resp).RegisteredCount)

	resp = do(t, srv, http.MethodPost, path, "", model.RegisterRequest{UserID: u3.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrFull.Error(), decode[model.ErrorResponse](t, resp).Error)

	resp = do(t, srv, http.MethodGet, "/events/"+e.ID+"/registrations", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	regs := decode[[]model.Registration](t, resp)
	require.Len(t, regs, 2)
	assert.Equal(t, u1.ID, regs[0].UserID)
	assert.Equal(t, u2.ID, regs[1].UserID)

	resp = do(t, srv, http.MethodGet, "/users/"+u1.ID+"/events", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Event](t, resp), 1)
}

func TestRegister_Errors(t *testing.T) {
	srv := newTestServer(t)
	owner := createUser(t, srv, "owner", model.RoleUser)
	member := createUser(t, srv, "member", model.RoleUser)

	resp := do(t, srv, http.MethodPost, "/events", owner.ID, model.CreateEventRequest{
		Title: "Draft meetup", StartsAt: time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC), Capacity: 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	draft := decode[model.Event](t, resp)

	tests := []struct {
		name   string
		event  string
		body   any
		status int
	}{
		{"missing user id", draft.ID, model.RegisterRequest{}, http.StatusBadRequest},
		{"malformed body", draft.ID, map[string]int{"userId": 7}, http.StatusBadRequest},
		{"unknown field", draft.ID, map[string]string{"user": member.ID}, http.StatusBadRequest},
		{"unknown event", "nope", model.RegisterRequest{UserID: member.ID}, http.StatusNotFound},
		{"unknown user", draft.ID, model.RegisterRequest{UserID: "ghost"}, http.StatusNotFound},
		{"draft event", draft.ID, model.RegisterRequest{UserID: member.ID}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/events/"+tt.event+"/register", "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, decode[model.ErrorResponse](t, resp).Error)
		})
	}
}

func TestRegister_ConcurrentLastSeat(t *testing.T) {
	srv := newTestServer(t)
	owner := createUser(t, srv, "owner", model.RoleUser)
	e := createPublishedEvent(t, srv, owner.ID, 5)
	path := "/events/" + e.ID + "/register"

	for i := range 4 {
		u := createUser(t, srv, fmt.Sprintf("early%d", i), model.RoleUser)
		resp := do(t, srv, http.MethodPost, path, "", model.RegisterRequest{UserID: u.ID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	a := createUser(t, srv, "racer-a", model.RoleUser)
	b := createUser(t, srv, "racer-b", model.RoleUser)

	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i, u := range []model.User{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(model.RegisterRequest{UserID: u.ID})
			resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, statuses)

	resp := do(t, srv, http.MethodGet, "/events/"+e.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, decode[model.Event](t, resp).RegisteredCount)
}

func TestEventManagement(t *testing.T) {
	srv := newTestServer(t)
	owner := createUser(t, srv, "owner", model.RoleUser)
	stranger := createUser(t, srv, "stranger", model.RoleUser)
	e := createPublishedEvent(t, srv, owner.ID, 10)

	resp := do(t, srv, http.MethodGet, "/events?category=Volunteering", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Event](t, resp), 1)

	resp = do(t, srv, http.MethodGet, "/events?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	title := "Riverside clean-up"
	resp = do(t, srv, http.MethodPatch, "/events/"+e.ID, stranger.ID, model.UpdateEventRequest{Title: &title})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, srv, http.MethodPatch, "/events/"+e.ID, "", model.UpdateEventRequest{Title: &title})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodPatch, "/events/"+e.ID, owner.ID, model.UpdateEventRequest{Title: &title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, title, decode[model.Event](t, resp).Title)

	resp = do(t, srv, http.MethodPost, "/events/"+e.ID+"/publish", owner.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/events/"+e.ID+"/cancel", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusCancelled, decode[model.Event](t, resp).Status)

	resp = do(t, srv, http.MethodDelete, "/events/"+e.ID, owner.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/events/"+e.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsers(t *testing.T) {
	srv := newTestServer(t)
	u := createUser(t, srv, "asha", model.RoleUser)

	resp := do(t, srv, http.MethodGet, "/users/"+u.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "asha@example.org", decode[model.User](t, resp).Email)

	resp = do(t, srv, http.MethodPost, "/users", "", model.CreateUserRequest{Name: "Asha", Email: "asha@example.org"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrEmailTaken.Error(), decode[model.ErrorResponse](t, resp).Error)

	resp = do(t, srv, http.MethodGet, "/users/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/users/ghost/events", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	owner := createUser(t, srv, "owner", model.RoleUser)
	e := createPublishedEvent(t, srv, owner.ID, 1)
	do(t, srv, http.MethodPost, "/events/"+e.ID+"/register", "", model.RegisterRequest{UserID: owner.ID})

	resp := do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `samudaya_registrations_total{outcome="success"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodOptions, "/events", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.Invalid("bad"), http.StatusBadRequest},
		{model.ErrEventNotFound, http.StatusNotFound},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrNotOpen, http.StatusConflict},
		{model.ErrCapacityBelowRegistered, http.StatusConflict},
		{model.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("add registrant: %w", model.ErrUnavailable), http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
