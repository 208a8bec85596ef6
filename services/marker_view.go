package services

import (
	"sort"
	"strings"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortField selects the column a view is ordered by. The empty field keeps
// the marker list's own order (newest first).
type SortField string

const (
	SortByInsertion SortField = ""
	SortByName      SortField = "name"
	SortByCoords    SortField = "coords"
)

type ViewQuery struct {
	Order    SortOrder `json:"order"`
	OrderBy  SortField `json:"orderBy"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

func (q ViewQuery) normalize() (ViewQuery, error) {
	switch q.Order {
	case "":
		q.Order = OrderAsc
	case OrderAsc, OrderDesc:
	default:
		return q, errors.ErrInvalidInput.WithDetails("order must be asc or desc")
	}
	switch q.OrderBy {
	case SortByInsertion, SortByName, SortByCoords:
	default:
		return q, errors.ErrInvalidInput.WithDetails("orderBy must be name or coords")
	}
	if q.Page < 0 {
		return q, errors.ErrInvalidInput.WithDetails("page must not be negative")
	}
	if q.PageSize <= 0 {
		return q, errors.ErrInvalidInput.WithDetails("pageSize must be positive")
	}
	return q, nil
}

type ViewRow struct {
	models.Marker
	Selected bool `json:"selected"`
}

// View is one sorted page of a marker list.
type View struct {
	Rows          []ViewRow `json:"rows"`
	Total         int       `json:"total"`
	SelectedCount int       `json:"selected_count"`
	Page          int       `json:"page"`
	PageSize      int       `json:"page_size"`
	Order         SortOrder `json:"order"`
	OrderBy       SortField `json:"order_by"`
}

// AllSelected reports whether every marker of a non-empty list is selected.
func (v View) AllSelected() bool {
	return v.Total > 0 && v.SelectedCount == v.Total
}

// SortMarkers returns a sorted copy. Ties keep their relative order.
func SortMarkers(markers []models.Marker, by SortField, order SortOrder) []models.Marker {
	out := make([]models.Marker, len(markers))
	copy(out, markers)
	if by == SortByInsertion {
		if order == OrderDesc {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out
	}
	key := func(m models.Marker) string {
		if by == SortByCoords {
			return m.Coords.String()
		}
		return m.Name
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := strings.Compare(key(out[i]), key(out[j]))
		if order == OrderDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// buildView projects markers and selection into the page described by q,
// which must be normalized.
func buildView(markers []models.Marker, selection map[string]struct{}, q ViewQuery) View {
	sorted := SortMarkers(markers, q.OrderBy, q.Order)

	start := len(sorted)
	if q.Page <= len(sorted)/q.PageSize {
		start = q.Page * q.PageSize
	}
	end := len(sorted)
	if q.PageSize < end-start {
		end = start + q.PageSize
	}

	rows := make([]ViewRow, 0, end-start)
	for _, m := range sorted[start:end] {
		_, sel := selection[m.ID]
		rows = append(rows, ViewRow{Marker: m, Selected: sel})
	}
	return View{
		Rows:          rows,
		Total:         len(markers),
		SelectedCount: len(selection),
		Page:          q.Page,
		PageSize:      q.PageSize,
		Order:         q.Order,
		OrderBy:       q.OrderBy,
	}
}
