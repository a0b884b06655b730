package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/snapcode/internal/snapshotservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *snapshotservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Artifact and the file set behind it.
	r.Get("/snapshot", h.GetSnapshot)
	r.Get("/files", h.ListFiles)

	// Build history.
	r.Get("/builds", h.ListBuilds)
	r.Get("/builds/latest", h.LatestBuild)

	// Manual rebuild.
	r.Post("/rebuild", h.Rebuild)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
