package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
	"pinpoint-server/utils/metrics"
)

// ShellFactory builds a fresh shell for a new workspace.
type ShellFactory func() *Shell

// WorkspaceService keeps the open workspaces, one shell each.
type WorkspaceService struct {
	newShell ShellFactory
	max      int
	log      *slog.Logger

	mu         sync.RWMutex
	workspaces map[string]*Shell
}

func NewWorkspaceService(newShell ShellFactory, max int) *WorkspaceService {
	return &WorkspaceService{
		newShell:   newShell,
		max:        max,
		log:        logger.L(),
		workspaces: make(map[string]*Shell),
	}
}

// Create opens a workspace and loads its markers. A load failure is
// returned alongside the workspace, which stays usable for a retry.
func (s *WorkspaceService) Create(ctx context.Context) (string, *Shell, error) {
	s.mu.Lock()
	if s.max > 0 && len(s.workspaces) >= s.max {
		s.mu.Unlock()
		return "", nil, errors.ErrUnavailable.WithDetails("too many open workspaces")
	}
	id := uuid.New().String()
	sh := s.newShell()
	s.workspaces[id] = sh
	metrics.Workspaces.Set(float64(len(s.workspaces)))
	s.mu.Unlock()

	s.log.Debug("workspace_created", "workspace_id", id)
	return id, sh, sh.Start(ctx)
}

func (s *WorkspaceService) Get(id string) (*Shell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.workspaces[id]
	return sh, ok
}

// Close disposes of a workspace and reports whether it existed.
func (s *WorkspaceService) Close(id string) bool {
	s.mu.Lock()
	sh, ok := s.workspaces[id]
	delete(s.workspaces, id)
	metrics.Workspaces.Set(float64(len(s.workspaces)))
	s.mu.Unlock()

	if ok {
		sh.Close()
		s.log.Debug("workspace_closed", "workspace_id", id)
	}
	return ok
}

// CloseAll disposes of every workspace, as on shutdown.
func (s *WorkspaceService) CloseAll() {
	s.mu.Lock()
	shells := s.workspaces
	s.workspaces = make(map[string]*Shell)
	metrics.Workspaces.Set(0)
	s.mu.Unlock()

	for _, sh := range shells {
		sh.Close()
	}
}

func (s *WorkspaceService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}
