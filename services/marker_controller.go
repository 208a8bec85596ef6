package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
	"pinpoint-server/utils/metrics"
)

// LoadState is the lifecycle of a marker list.
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoading
	StateReady
	StateLoadFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadFailed:
		return "load_failed"
	default:
		return "uninitialized"
	}
}

func (s LoadState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Navigator moves the map. Implemented by Shell.
type Navigator interface {
	PanTo(coords models.Coords)
}

// DeleteFailure is a remote delete that did not go through. The marker is
// gone locally regardless.
type DeleteFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type DeleteResult struct {
	Removed []string        `json:"removed"`
	Failed  []DeleteFailure `json:"failed,omitempty"`
}

// ControllerStatus is a snapshot of the controller's state flags.
type ControllerStatus struct {
	State         LoadState `json:"state"`
	Pending       bool      `json:"pending"`
	SignedIn      bool      `json:"signed_in"`
	Count         int       `json:"count"`
	SelectedCount int       `json:"selected_count"`
	LoadError     string    `json:"load_error,omitempty"`
}

// MarkerListController owns the marker set and selection of one workspace.
//
// The mutex guards fields only and is never held across calls to the store
// or the resolver. At most one CreateMarker runs at a time; a second one is
// rejected with ErrOperationInProgress. Every Initialize or Reset starts a
// new epoch, and results of operations issued under an older epoch are
// dropped.
type MarkerListController struct {
	store     MarkerStore
	resolver  NameResolver
	navigator Navigator
	seed      bool
	log       *slog.Logger

	mu          sync.Mutex
	state       LoadState
	identity    *models.Identity
	epoch       uint64
	markers     []models.Marker
	selection   map[string]struct{}
	nextLocalID int
	pending     bool
	loadErr     error
}

type ControllerOption func(*MarkerListController)

// WithSeedMarkers controls whether signed-out sessions start with the seed list.
func WithSeedMarkers(seed bool) ControllerOption {
	return func(c *MarkerListController) { c.seed = seed }
}

func WithNavigator(n Navigator) ControllerOption {
	return func(c *MarkerListController) { c.navigator = n }
}

func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *MarkerListController) { c.log = l }
}

func NewMarkerListController(store MarkerStore, resolver NameResolver, opts ...ControllerOption) *MarkerListController {
	c := &MarkerListController{
		store:       store,
		resolver:    resolver,
		seed:        true,
		log:         logger.L(),
		selection:   make(map[string]struct{}),
		nextLocalID: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize loads the marker set for identity: the user's stored markers
// when signed in, the seed list (or nothing) otherwise. A failed fetch leaves
// an empty set in StateLoadFailed and returns an Unavailable error.
func (c *MarkerListController) Initialize(ctx context.Context, identity *models.Identity) error {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.state = StateLoading
	c.identity = copyIdentity(identity)
	c.markers = nil
	c.selection = make(map[string]struct{})
	c.pending = false
	c.loadErr = nil
	c.nextLocalID = 1
	c.mu.Unlock()

	if identity == nil {
		var markers []models.Marker
		if c.seed {
			markers = models.SeedMarkers()
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if epoch != c.epoch {
			return errors.ErrStaleOperation
		}
		c.markers = markers
		c.nextLocalID = len(markers) + 1
		c.state = StateReady
		return nil
	}

	var (
		markers []models.Marker
		err     error
	)
	if c.store == nil {
		err = fmt.Errorf("no marker store configured")
	} else {
		markers, err = c.store.List(ctx, identity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return errors.ErrStaleOperation
	}
	if err != nil {
		c.markers = nil
		c.state = StateLoadFailed
		c.loadErr = err
		c.log.Warn("markers_load_failed", "user_id", identity.UserID, "err", err)
		return errors.ErrUnavailable.WithCause(err)
	}
	c.markers = uniqueByID(markers)
	c.state = StateReady
	c.log.Debug("markers_loaded", "user_id", identity.UserID, "count", len(c.markers))
	return nil
}

// Reload retries a failed load, or refreshes a signed-in list from the store.
// A ready signed-out list has nothing to reload.
func (c *MarkerListController) Reload(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	identity := copyIdentity(c.identity)
	c.mu.Unlock()

	switch {
	case state == StateLoadFailed:
	case state == StateReady && identity != nil:
	case state == StateReady:
		return nil
	default:
		return errors.ErrNotReady.WithDetails("markers are " + state.String())
	}
	return c.Initialize(ctx, identity)
}

// Reset empties the marker set and selection, as on sign-out.
func (c *MarkerListController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.identity = nil
	c.markers = nil
	c.selection = make(map[string]struct{})
	c.pending = false
	c.loadErr = nil
	c.nextLocalID = 1
	c.state = StateReady
}

// CreateMarker resolves a name for coords and inserts a new marker at the
// front of the list. When signed in the marker is persisted first and takes
// the store's id; a store failure returns ErrCreateFailed and inserts nothing.
func (c *MarkerListController) CreateMarker(ctx context.Context, coords models.Coords) (models.Marker, error) {
	if err := coords.Validate(); err != nil {
		return models.Marker{}, err
	}

	c.mu.Lock()
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		return models.Marker{}, errors.ErrNotReady.WithDetails("markers are " + state.String())
	}
	if c.pending {
		c.mu.Unlock()
		return models.Marker{}, errors.ErrOperationInProgress
	}
	c.pending = true
	epoch := c.epoch
	identity := copyIdentity(c.identity)
	c.mu.Unlock()

	name := models.UnknownPlace
	if c.resolver != nil {
		if n := c.resolver.ResolveName(ctx, coords.Lat(), coords.Lng()); n != "" {
			name = n
		}
	}
	marker := models.Marker{Coords: coords, Name: name}

	mode := "local"
	if identity != nil {
		mode = "remote"
		if c.store == nil {
			c.finishPending(epoch)
			return models.Marker{}, errors.ErrCreateFailed.WithDetails("no marker store configured")
		}
		id, err := c.store.Add(ctx, identity, marker)
		if err != nil {
			c.finishPending(epoch)
			c.log.Warn("marker_create_failed", "user_id", identity.UserID, "err", err)
			return models.Marker{}, errors.ErrCreateFailed.WithCause(err)
		}
		marker.ID = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.log.Info("marker_create_discarded", "reason", "session changed")
		return models.Marker{}, errors.ErrStaleOperation
	}
	if identity == nil {
		marker.ID = c.takeLocalID()
	} else if c.indexOf(marker.ID) >= 0 {
		c.pending = false
		return models.Marker{}, errors.ErrCreateFailed.WithDetails("store returned duplicate id " + marker.ID)
	}
	c.markers = append([]models.Marker{marker}, c.markers...)
	c.pending = false

	metrics.MarkersCreatedTotal.WithLabelValues(mode).Inc()
	c.log.Info("marker_created", "id", marker.ID, "name", marker.Name, "mode", mode)
	return marker, nil
}

func (c *MarkerListController) finishPending(epoch uint64) {
	c.mu.Lock()
	if epoch == c.epoch {
		c.pending = false
	}
	c.mu.Unlock()
}

// takeLocalID returns the next unused sequential id. Caller holds mu.
func (c *MarkerListController) takeLocalID() string {
	for {
		id := strconv.Itoa(c.nextLocalID)
		c.nextLocalID++
		if c.indexOf(id) < 0 {
			return id
		}
	}
}

// indexOf returns the position of id in the marker set. Caller holds mu.
func (c *MarkerListController) indexOf(id string) int {
	for i, m := range c.markers {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// DeleteMarkers removes every marker whose id is in ids, then deletes them
// remotely when signed in. Remote failures are reported in the result and the
// returned error; the local removal is not rolled back.
func (c *MarkerListController) DeleteMarkers(ctx context.Context, ids []string) (DeleteResult, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	c.mu.Lock()
	kept := make([]models.Marker, 0, len(c.markers))
	removed := []string{}
	for _, m := range c.markers {
		if _, ok := want[m.ID]; ok {
			removed = append(removed, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	if len(removed) > 0 {
		c.markers = kept
		c.selection = make(map[string]struct{})
	}
	identity := copyIdentity(c.identity)
	c.mu.Unlock()

	result := DeleteResult{Removed: removed}
	mode := "local"
	if identity != nil {
		mode = "remote"
	}
	metrics.MarkersDeletedTotal.WithLabelValues(mode).Add(float64(len(removed)))
	if identity == nil || len(removed) == 0 {
		return result, nil
	}

	var errs []error
	for _, id := range removed {
		var err error
		if c.store == nil {
			err = errors.ErrUnavailable.WithDetails("no marker store configured")
		} else {
			err = c.store.Remove(ctx, identity, id)
		}
		if err != nil {
			c.log.Warn("marker_remote_delete_failed", "id", id, "user_id", identity.UserID, "err", err)
			result.Failed = append(result.Failed, DeleteFailure{ID: id, Error: err.Error()})
			errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
		}
	}
	return result, errors.Join(errs...)
}

// PanTo asks the navigator to center the map on coords. The marker set is
// not touched.
func (c *MarkerListController) PanTo(coords models.Coords) error {
	if err := coords.Validate(); err != nil {
		return err
	}
	if c.navigator != nil {
		c.navigator.PanTo(coords)
	}
	return nil
}

// GetView returns one sorted page of the marker set with selection flags.
func (c *MarkerListController) GetView(q ViewQuery) (View, error) {
	q, err := q.normalize()
	if err != nil {
		return View{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return buildView(c.markers, c.selection, q), nil
}

// ToggleSelect flips the selection of id and reports whether it is now selected.
func (c *MarkerListController) ToggleSelect(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return false, errors.ErrNotFound.WithDetails("marker " + id)
	}
	if _, ok := c.selection[id]; ok {
		delete(c.selection, id)
		return false, nil
	}
	c.selection[id] = struct{}{}
	return true, nil
}

// SelectAll selects every marker in the set, not only a visible page.
func (c *MarkerListController) SelectAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = make(map[string]struct{}, len(c.markers))
	for _, m := range c.markers {
		c.selection[m.ID] = struct{}{}
	}
	return len(c.selection)
}

func (c *MarkerListController) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = make(map[string]struct{})
}

// Selection returns the selected ids in marker set order.
func (c *MarkerListController) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.selection))
	for _, m := range c.markers {
		if _, ok := c.selection[m.ID]; ok {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Markers returns a copy of the marker set.
func (c *MarkerListController) Markers() []models.Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Marker, len(c.markers))
	copy(out, c.markers)
	return out
}

// Marker looks up a marker by id.
func (c *MarkerListController) Marker(id string) (models.Marker, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.markers[i], true
	}
	return models.Marker{}, false
}

func (c *MarkerListController) Status() ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := ControllerStatus{
		State:         c.state,
		Pending:       c.pending,
		SignedIn:      c.identity != nil,
		Count:         len(c.markers),
		SelectedCount: len(c.selection),
	}
	if c.loadErr != nil {
		st.LoadError = c.loadErr.Error()
	}
	return st
}

func copyIdentity(identity *models.Identity) *models.Identity {
	if identity == nil {
		return nil
	}
	cp := *identity
	return &cp
}

func uniqueByID(markers []models.Marker) []models.Marker {
	seen := make(map[string]struct{}, len(markers))
	out := make([]models.Marker, 0, len(markers))
	for _, m := range markers {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
