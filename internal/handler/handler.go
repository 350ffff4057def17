// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/service"
)

// ActorHeader names the acting user for event management requests.
const ActorHeader = "X-User-ID"

// EventHandler holds the HTTP handlers for events and registrations.
type EventHandler struct {
	events        *service.EventService
	registrations *service.RegistrationService
	log           *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, registrations *service.RegistrationService, log *slog.Logger) *EventHandler {
	return &EventHandler{events: events, registrations: registrations, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrAlreadyRegistered),
		errors.Is(err, model.ErrFull),
		errors.Is(err, model.ErrNotOpen),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrCapacityBelowRegistered),
		errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondErr writes err with its mapped status. Faults are logged and their
// details kept out of the response body.
func respondErr(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("kind", model.Kind(err)),
			slog.Any("error", err),
		)
		if status == http.StatusServiceUnavailable {
			writeError(w, status, model.ErrUnavailable.Error())
			return
		}
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
// Creates a draft event owned by the acting user.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), actorID(r), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Supports ?status= and ?category= filters; published events by default.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EventFilter{
		Status:   model.EventStatus(strings.TrimSpace(q.Get("status"))),
		Category: strings.TrimSpace(q.Get("category")),
	}

	events, err := h.events.ListEvents(r.Context(), filter)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PATCH /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), actorID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEvent(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublishEvent handles POST /events/{id}/publish
func (h *EventHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.PublishEvent(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// CancelEvent handles POST /events/{id}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.CancelEvent(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /events/{id}/register
// Performs a concurrency-safe registration for the user named in the body.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	snap, err := h.registrations.Register(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
