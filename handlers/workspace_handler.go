package handlers

import (
	"net/http"
	"strings"

	"pinpoint-server/middleware"
	"pinpoint-server/services"
	"pinpoint-server/utils/errors"
)

type WorkspaceHandler struct {
	workspaces *services.WorkspaceService
}

type WorkspaceResponse struct {
	WorkspaceID string            `json:"workspace_id"`
	Map         services.MapState `json:"map"`
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

// CreateWorkspace opens a workspace. A failed marker load does not fail the
// request; it shows up in the map status and can be retried.
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	id, sh, err := h.workspaces.Create(r.Context())
	if sh == nil {
		middleware.WriteError(w, err)
		return
	}
	w.Header().Set(middleware.WorkspaceHeader, id)
	middleware.WriteJSON(w, http.StatusCreated, WorkspaceResponse{WorkspaceID: id, Map: sh.MapState()})
}

func (h *WorkspaceHandler) CloseWorkspace(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.Header.Get(middleware.WorkspaceHeader))
	if id == "" {
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails(middleware.WorkspaceHeader+" header is required"))
		return
	}
	if !h.workspaces.Close(id) {
		middleware.WriteError(w, errors.ErrNotFound.WithDetails("workspace "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
