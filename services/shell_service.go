package services

import (
	"context"
	"log/slog"
	"sync"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
)

// ShellConfig holds the map defaults of a workspace.
type ShellConfig struct {
	DefaultCenter models.Coords
	DefaultZoom   int
	PanZoom       int
	TileURL       string
}

func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		DefaultCenter: models.Coords{37.7749, -122.4194},
		DefaultZoom:   7,
		PanZoom:       10,
		TileURL:       "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	}
}

// MapState is everything a map view needs to draw.
type MapState struct {
	Viewport     models.Viewport  `json:"viewport"`
	TileURL      string           `json:"tile_url"`
	Markers      []models.Marker  `json:"markers"`
	ActivePanel  models.Panel     `json:"active_panel"`
	UserLocation *models.Coords   `json:"user_location,omitempty"`
	Identity     *models.Identity `json:"identity,omitempty"`
	Status       ControllerStatus `json:"status"`
}

// Shell wires one session to one marker list and owns the viewport and the
// open panel.
type Shell struct {
	session    *SessionState
	controller *MarkerListController
	cfg        ShellConfig
	log        *slog.Logger

	mu           sync.Mutex
	viewport     models.Viewport
	activePanel  models.Panel
	userLocation *models.Coords

	unsubscribe func()

	// idMu serializes identity transitions into the controller; appliedGen is
	// the session generation last applied.
	idMu       sync.Mutex
	appliedGen uint64
}

// NewShell builds the controller with the shell as its navigator and
// subscribes it to identity changes. Call Start to load markers.
func NewShell(session *SessionState, store MarkerStore, resolver NameResolver, cfg ShellConfig, opts ...ControllerOption) *Shell {
	sh := &Shell{
		session:  session,
		cfg:      cfg,
		log:      logger.L(),
		viewport: models.Viewport{Center: cfg.DefaultCenter, Zoom: cfg.DefaultZoom},
	}
	opts = append(opts, WithNavigator(sh))
	sh.controller = NewMarkerListController(store, resolver, opts...)
	sh.unsubscribe = session.Subscribe(sh.onIdentityChange)
	return sh
}

// Start loads the marker list for the current identity.
func (sh *Shell) Start(ctx context.Context) error {
	sh.idMu.Lock()
	defer sh.idMu.Unlock()
	identity, gen := sh.session.Current()
	sh.appliedGen = gen
	return sh.controller.Initialize(ctx, identity)
}

// Close detaches the shell from its session.
func (sh *Shell) Close() {
	if sh.unsubscribe != nil {
		sh.unsubscribe()
	}
}

// onIdentityChange applies the session's current state rather than the
// notified identity: notifications from concurrent transitions can arrive out
// of order, and one older than the last applied generation is dropped.
func (sh *Shell) onIdentityChange(ctx context.Context, _ *models.Identity) {
	sh.idMu.Lock()
	defer sh.idMu.Unlock()
	identity, gen := sh.session.Current()
	if gen <= sh.appliedGen {
		return
	}
	sh.appliedGen = gen
	if identity == nil {
		sh.controller.Reset()
		return
	}
	if err := sh.controller.Initialize(ctx, identity); err != nil {
		sh.log.Warn("markers_initialize_failed", "user_id", identity.UserID, "err", err)
	}
}

func (sh *Shell) Session() *SessionState { return sh.session }

func (sh *Shell) Controller() *MarkerListController { return sh.controller }

// PanTo centers the map on coords at the pan zoom and closes any panel.
func (sh *Shell) PanTo(coords models.Coords) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.viewport = models.Viewport{Center: coords, Zoom: sh.cfg.PanZoom}
	sh.setPanel(models.PanelNone)
}

// setPanel switches the open panel. Leaving the markers panel drops the
// selection. Caller holds mu.
func (sh *Shell) setPanel(p models.Panel) {
	if sh.activePanel == models.PanelMarkers && p != models.PanelMarkers {
		sh.controller.ClearSelection()
	}
	sh.activePanel = p
}

func (sh *Shell) Viewport() models.Viewport {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.viewport
}

// TogglePanel opens p, closing whichever panel was open, or closes p when it
// is already open.
func (sh *Shell) TogglePanel(p models.Panel) models.Panel {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.activePanel == p {
		sh.setPanel(models.PanelNone)
	} else {
		sh.setPanel(p)
	}
	return sh.activePanel
}

func (sh *Shell) ClosePanel() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.setPanel(models.PanelNone)
}

func (sh *Shell) ActivePanel() models.Panel {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.activePanel
}

// SetUserLocation records the device position, rounded to four decimals.
func (sh *Shell) SetUserLocation(coords models.Coords) error {
	if err := coords.Validate(); err != nil {
		return err
	}
	rounded := coords.Round(4)
	sh.mu.Lock()
	sh.userLocation = &rounded
	sh.mu.Unlock()
	return nil
}

func (sh *Shell) UserLocation() (models.Coords, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.userLocation == nil {
		return models.Coords{}, false
	}
	return *sh.userLocation, true
}

// CreateAtUserLocation adds a marker at the last reported device position.
func (sh *Shell) CreateAtUserLocation(ctx context.Context) (models.Marker, error) {
	loc, ok := sh.UserLocation()
	if !ok {
		return models.Marker{}, errors.ErrInvalidInput.WithDetails("no user location reported")
	}
	return sh.controller.CreateMarker(ctx, loc)
}

// ActivateMarker handles a click on a marker row: the map pans to the marker
// and the panel closes.
func (sh *Shell) ActivateMarker(id string) (models.Marker, error) {
	m, ok := sh.controller.Marker(id)
	if !ok {
		return models.Marker{}, errors.ErrNotFound.WithDetails("marker " + id)
	}
	if err := sh.controller.PanTo(m.Coords); err != nil {
		return models.Marker{}, err
	}
	return m, nil
}

func (sh *Shell) MapState() MapState {
	sh.mu.Lock()
	st := MapState{
		Viewport:    sh.viewport,
		TileURL:     sh.cfg.TileURL,
		ActivePanel: sh.activePanel,
	}
	if sh.userLocation != nil {
		loc := *sh.userLocation
		st.UserLocation = &loc
	}
	sh.mu.Unlock()

	st.Markers = sh.controller.Markers()
	st.Identity = sh.session.Identity()
	st.Status = sh.controller.Status()
	return st
}
