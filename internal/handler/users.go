package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/service"
)

// UserHandler holds the HTTP handlers for members.
type UserHandler struct {
	users *service.UserService
	log   *slog.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.users.CreateUser(r.Context(), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListUserEvents handles GET /users/{id}/events
// Returns the events the user is registered for.
func (h *UserHandler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.users.ListUserEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}
