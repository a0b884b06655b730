package api

import "github.com/starford/snapcode/internal/history"

// FileListResponse is the response for GET /api/files.
type FileListResponse struct {
	Files []string `json:"files" validate:"required"`
	Total int      `json:"total" example:"42" validate:"required"`
}

// BuildListResponse is the response for GET /api/builds.
type BuildListResponse struct {
	Builds []history.Build `json:"builds" validate:"required"`
}

// RebuildResponse is the response for POST /api/rebuild.
type RebuildResponse struct {
	Status string `json:"status" example:"queued" validate:"required"`
}
