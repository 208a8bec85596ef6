package models

import (
	"fmt"
	"strings"
)

// Viewport is the map's center and zoom level.
type Viewport struct {
	Center Coords `json:"center"`
	Zoom   int    `json:"zoom"`
}

// Panel identifies the overlay currently open over the map. At most one
// panel is open at a time.
type Panel int

const (
	PanelNone Panel = iota
	PanelMarkers
	PanelAccount
)

func (p Panel) String() string {
	switch p {
	case PanelMarkers:
		return "markers"
	case PanelAccount:
		return "account"
	default:
		return "none"
	}
}

func ParsePanel(s string) (Panel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PanelNone, nil
	case "markers":
		return PanelMarkers, nil
	case "account":
		return PanelAccount, nil
	}
	return PanelNone, fmt.Errorf("unknown panel %q", s)
}

func (p Panel) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Panel) UnmarshalText(b []byte) error {
	v, err := ParsePanel(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
