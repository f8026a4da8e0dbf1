package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tickler/internal/noteservice"
	"github.com/starford/tickler/internal/review"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, sched *review.Scheduler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, sched)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)

	r.Post("/reviews", h.ScheduleReview)
	r.Get("/reviews/{date}", h.GetDailyNote)

	r.Get("/dates/resolve", h.ResolveDate)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
