package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/snapcode/internal/apperr"
	"github.com/starford/snapcode/internal/snapshotservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *snapshotservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *snapshotservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GetSnapshot handles GET /api/snapshot.
//
//	@Summary		Download the current snapshot artifact
//	@Tags			snapshot
//	@Produce		plain
//	@Success		200	{string}	string
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/snapshot [get]
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Snapshot(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not built yet")
		} else {
			slog.Error("read snapshot failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListFiles handles GET /api/files.
//
//	@Summary		List the files the next snapshot would include
//	@Tags			snapshot
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Files(r.Context())
	if err != nil {
		slog.Error("list files failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// ListBuilds handles GET /api/builds.
//
//	@Summary		List recent builds, newest first
//	@Tags			builds
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Success		200		{object}	BuildListResponse
//	@Security		BearerAuth
//	@Router			/builds [get]
func (h *Handler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	builds, err := h.svc.Builds(r.Context(), limit)
	if err != nil {
		slog.Error("list builds failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, BuildListResponse{Builds: builds})
}

// LatestBuild handles GET /api/builds/latest.
//
//	@Summary		Get the most recent build
//	@Tags			builds
//	@Produce		json
//	@Success		200	{object}	history.Build
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/builds/latest [get]
func (h *Handler) LatestBuild(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.LatestBuild(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no builds recorded")
		} else {
			slog.Error("latest build failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Rebuild handles POST /api/rebuild.
//
//	@Summary		Queue a full rebuild
//	@Tags			snapshot
//	@Produce		json
//	@Success		202	{object}	RebuildResponse
//	@Failure		503	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Rebuild(r.Context()); err != nil {
		switch {
		case errors.Is(err, apperr.ErrQueueFull), errors.Is(err, apperr.ErrDisabled):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			slog.Error("rebuild failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, RebuildResponse{Status: "queued"})
}
