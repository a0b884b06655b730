// Package snapshotservice coordinates the builder, the watcher's rebuild queue,
// and build history for the HTTP and MCP surfaces.
package snapshotservice

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/starford/snapcode/internal/apperr"
	"github.com/starford/snapcode/internal/history"
)

// Lister lists the files a snapshot would contain.
type Lister interface {
	Output() string
	Files() ([]string, error)
}

// Rebuilder queues a rebuild.
type Rebuilder interface {
	Trigger() error
}

// Service exposes snapshot operations.
type Service struct {
	lister    Lister
	rebuilder Rebuilder
	history   history.Store
}

// NewService creates a new snapshot service. store may be nil when history
// is disabled.
func NewService(lister Lister, rebuilder Rebuilder, store history.Store) *Service {
	if store == nil {
		store = history.Nop{}
	}
	return &Service{lister: lister, rebuilder: rebuilder, history: store}
}

// OutputPath returns the absolute artifact path.
func (s *Service) OutputPath() string {
	return s.lister.Output()
}

// Snapshot returns the current artifact, or apperr.ErrNotFound before the
// first build has written it.
func (s *Service) Snapshot(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.lister.Output())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("snapshot: read artifact: %w", err)
	}
	return data, nil
}

// Files returns the relative paths a build would include right now.
func (s *Service) Files(_ context.Context) ([]string, error) {
	files, err := s.lister.Files()
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// Builds returns recent build records, newest first.
func (s *Service) Builds(_ context.Context, limit int) ([]history.Build, error) {
	builds, err := s.history.List(limit)
	if err != nil {
		return nil, err
	}
	if builds == nil {
		builds = []history.Build{}
	}
	return builds, nil
}

// LatestBuild returns the newest build record.
func (s *Service) LatestBuild(_ context.Context) (*history.Build, error) {
	return s.history.Latest()
}

// Rebuild queues a manual rebuild. It returns apperr.ErrQueueFull when the
// queue cannot take another request.
func (s *Service) Rebuild(_ context.Context) error {
	if s.rebuilder == nil {
		return apperr.ErrDisabled
	}
	return s.rebuilder.Trigger()
}
