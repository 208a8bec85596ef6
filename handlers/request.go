package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"pinpoint-server/middleware"
	"pinpoint-server/models"
	"pinpoint-server/services"
	"pinpoint-server/utils/errors"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.ErrInvalidInput.WithDetails("malformed JSON body")
	}
	return nil
}

// currentShell returns the workspace resolved by WorkspaceMiddleware.
func currentShell(w http.ResponseWriter, r *http.Request) (*services.Shell, bool) {
	sh, ok := middleware.ShellFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails(middleware.WorkspaceHeader+" header is required"))
		return nil, false
	}
	return sh, true
}

type coordsInput struct {
	Coords *models.Coords `json:"coords"`
}

func (in coordsInput) value() (models.Coords, error) {
	if in.Coords == nil {
		return models.Coords{}, errors.ErrInvalidInput.WithDetails("coords [lat, lng] required")
	}
	return *in.Coords, nil
}

// queryCoords parses ?lat=&lng=.
func queryCoords(r *http.Request) (models.Coords, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return models.Coords{}, errors.ErrInvalidInput.WithDetails("lat must be a number")
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		return models.Coords{}, errors.ErrInvalidInput.WithDetails("lng must be a number")
	}
	return models.NewCoords(lat, lng), nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.ErrInvalidInput.WithDetails(key + " must be an integer")
	}
	return n, nil
}
