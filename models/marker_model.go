package models

import (
	"math"
	"strconv"
	"time"

	"pinpoint-server/utils/errors"
)

// UnknownPlace is the name given to a marker whose place could not be resolved.
const UnknownPlace = "Unknown"

// Coords is a [lat, lng] pair. It encodes as a two element JSON array.
type Coords [2]float64

func NewCoords(lat, lng float64) Coords { return Coords{lat, lng} }

func (c Coords) Lat() float64 { return c[0] }
func (c Coords) Lng() float64 { return c[1] }

// Validate rejects non-finite values and values outside the WGS84 range.
func (c Coords) Validate() error {
	lat, lng := c[0], c[1]
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return errors.ErrInvalidCoordinates.WithDetails("coordinates must be finite")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return errors.ErrInvalidCoordinates.WithDetails("lat=" + formatCoord(lat) + ", lng=" + formatCoord(lng))
	}
	return nil
}

// String renders "lat, lng" with the shortest exact decimal form, which is
// also the sort key used when ordering by coordinates.
func (c Coords) String() string {
	return formatCoord(c[0]) + ", " + formatCoord(c[1])
}

// Round returns the coordinates rounded to the given number of decimals.
func (c Coords) Round(decimals int) Coords {
	p := math.Pow(10, float64(decimals))
	return Coords{math.Round(c[0]*p) / p, math.Round(c[1]*p) / p}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Marker is a named point of interest held by a marker list.
type Marker struct {
	ID     string `json:"id"`
	Coords Coords `json:"coords"`
	Name   string `json:"name"`
}

// MarkerDocument is the persisted form of a marker under users/{uid}/markers.
type MarkerDocument struct {
	ID        string `bson:"_id,omitempty"`
	UID       string `bson:"uid"`
	Coords    Coords `bson:"coords"`
	Name      string `bson:"name"`
	Timestamp int64  `bson:"timestamp,omitempty"`
}

// NewMarkerDocument builds the document stored for uid. The id is left for
// the store to assign.
func NewMarkerDocument(uid string, m Marker, now time.Time) MarkerDocument {
	name := m.Name
	if name == "" {
		name = UnknownPlace
	}
	return MarkerDocument{
		UID:       uid,
		Coords:    m.Coords,
		Name:      name,
		Timestamp: now.UnixMilli(),
	}
}

func (d MarkerDocument) Marker() Marker {
	name := d.Name
	if name == "" {
		name = UnknownPlace
	}
	return Marker{ID: d.ID, Coords: d.Coords, Name: name}
}

// SeedMarkers is the starter list shown to signed-out users.
func SeedMarkers() []Marker {
	return []Marker{
		{ID: "1", Coords: Coords{37.9101, -122.0652}, Name: "Walnut Creek"},
		{ID: "2", Coords: Coords{37.3387, -121.8853}, Name: "San Jose"},
		{ID: "3", Coords: Coords{37.8044, -122.2712}, Name: "Oakland"},
		{ID: "4", Coords: Coords{34.0522, -118.2437}, Name: "Los Angeles"},
		{ID: "5", Coords: Coords{40.7128, -74.006}, Name: "New York City"},
		{ID: "6", Coords: Coords{41.8781, -87.6298}, Name: "Chicago"},
		{ID: "7", Coords: Coords{29.7604, -95.3698}, Name: "Houston"},
		{ID: "8", Coords: Coords{39.7392, -104.9903}, Name: "Denver"},
		{ID: "9", Coords: Coords{25.7617, -80.1918}, Name: "Miami"},
		{ID: "10", Coords: Coords{47.6062, -122.3321}, Name: "Seattle"},
	}
}
