package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the full route table. A nil metrics handler leaves
// /metrics unmounted.
func NewRouter(events *EventHandler, users *UserHandler, metrics http.Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/users", func(r chi.Router) {
		r.Post("/", users.CreateUser)
		r.Get("/{id}", users.GetUser)
		r.Get("/{id}/events", users.ListUserEvents)
	})

	r.Route("/events", func(r chi.Router) {
		r.Post("/", events.CreateEvent)
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)
		r.Patch("/{id}", events.UpdateEvent)
		r.Delete("/{id}", events.DeleteEvent)
		r.Post("/{id}/publish", events.PublishEvent)
		r.Post("/{id}/cancel", events.CancelEvent)
		r.Post("/{id}/register", events.Register)
		r.Get("/{id}/registrations", events.ListRegistrations)
	})

	return r
}
