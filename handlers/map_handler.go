package handlers

import (
	"net/http"

	"pinpoint-server/middleware"
	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
)

// MapHandler serves the viewport, panels and device location of a workspace.
type MapHandler struct{}

type PanelResponse struct {
	ActivePanel models.Panel `json:"active_panel"`
}

func NewMapHandler() *MapHandler { return &MapHandler{} }

func (h *MapHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sh.MapState())
}

func (h *MapHandler) TogglePanel(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	var input struct {
		Panel string `json:"panel"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}
	panel, err := models.ParsePanel(input.Panel)
	if err != nil || panel == models.PanelNone {
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails("panel must be markers or account"))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, PanelResponse{ActivePanel: sh.TogglePanel(panel)})
}

func (h *MapHandler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	sh.ClosePanel()
	middleware.WriteJSON(w, http.StatusOK, PanelResponse{ActivePanel: sh.ActivePanel()})
}

func (h *MapHandler) Pan(w http.ResponseWriter, r *http.Request) {
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
	if err := sh.Controller().PanTo(coords); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sh.Viewport())
}

// ReportLocation records the device position sent by the client's
// geolocation watcher.
func (h *MapHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	coords, err := queryCoords(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := sh.SetUserLocation(coords); err != nil {
		middleware.WriteError(w, err)
		return
	}
	loc, _ := sh.UserLocation()
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "user_location": loc})
}
