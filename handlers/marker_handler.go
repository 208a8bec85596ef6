package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"pinpoint-server/middleware"
	"pinpoint-server/models"
	"pinpoint-server/services"
	"pinpoint-server/utils/logger"
)

type MarkerHandler struct {
	pageSize int
}

type MarkerResponse struct {
	Marker models.Marker             `json:"marker"`
	Status services.ControllerStatus `json:"status"`
}

type ActivateResponse struct {
	Marker   models.Marker   `json:"marker"`
	Viewport models.Viewport `json:"viewport"`
}

type SelectionResponse struct {
	Selected      []string `json:"selected"`
	SelectedCount int      `json:"selected_count"`
}

func NewMarkerHandler(pageSize int) *MarkerHandler {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &MarkerHandler{pageSize: pageSize}
}

// GetMarkers returns one sorted page of the marker table.
func (h *MarkerHandler) GetMarkers(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", h.pageSize)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	q := services.ViewQuery{
		Order:    services.SortOrder(r.URL.Query().Get("order")),
		OrderBy:  services.SortField(r.URL.Query().Get("orderBy")),
		Page:     page,
		PageSize: pageSize,
	}

	view, err := sh.Controller().GetView(q)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

func (h *MarkerHandler) CreateMarker(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	var input coordsInput
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	coords, err := input.value()
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	m, err := sh.Controller().CreateMarker(r.Context(), coords)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, MarkerResponse{Marker: m, Status: sh.Controller().Status()})
}

// CreateAtLocation drops a marker at the last reported device position.
func (h *MarkerHandler) CreateAtLocation(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	m, err := sh.CreateAtUserLocation(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, MarkerResponse{Marker: m, Status: sh.Controller().Status()})
}

// DeleteMarkers removes the given ids. Remote failures are listed in the
// response; the markers are gone from the list either way.
func (h *MarkerHandler) DeleteMarkers(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	var input struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	result, err := sh.Controller().DeleteMarkers(r.Context(), input.IDs)
	if err != nil {
		logger.L().Warn("marker_delete_partial", "workspace_id", middleware.WorkspaceIDFromContext(r.Context()), "failed", len(result.Failed), "err", err)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *MarkerHandler) Reload(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	if err := sh.Controller().Reload(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sh.Controller().Status())
}

func (h *MarkerHandler) Activate(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	m, err := sh.ActivateMarker(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, ActivateResponse{Marker: m, Viewport: sh.Viewport()})
}

func (h *MarkerHandler) ToggleSelect(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	if _, err := sh.Controller().ToggleSelect(mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeSelection(w, sh)
}

func (h *MarkerHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	sh.Controller().SelectAll()
	writeSelection(w, sh)
}

func (h *MarkerHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	sh.Controller().ClearSelection()
	writeSelection(w, sh)
}

func writeSelection(w http.ResponseWriter, sh *services.Shell) {
	sel := sh.Controller().Selection()
	middleware.WriteJSON(w, http.StatusOK, SelectionResponse{Selected: sel, SelectedCount: len(sel)})
}
