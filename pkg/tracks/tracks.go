// Package tracks binds tracking-table rows to typed records and groups
// per-frame detections by track identifier.
package tracks

import (
	"fmt"
	"math"
	"sort"

	"trackcrop/internal/models"
)

// LabelField is the optional string column carried by tracking tables.
const LabelField = "Label"

// Table is an ordered, header-homogeneous set of detection rows.
type Table struct {
	Columns []string
	Rows    []models.DetectionRow
}

// HasColumn reports whether the header lists field.
func (t *Table) HasColumn(field string) bool {
	for _, c := range t.Columns {
		if c == field {
			return true
		}
	}
	return false
}

// Require checks the header once so that a missing column fails before any
// extraction starts.
func (t *Table) Require(fields ...string) error {
	for _, f := range fields {
		if !t.HasColumn(f) {
			return &models.MissingFieldError{Field: f}
		}
	}
	return nil
}

// Groups is the result of grouping rows by track id.
type Groups struct {
	// IDs lists the distinct track ids in ascending order
	IDs []float64

	// ByID maps a track id to its rows in input order
	ByID map[float64][]models.DetectionRow
}

// Group collects rows by the numeric value of field. Rows keep their input
// order within a group. A row without field fails with MissingFieldError
// and a NaN or infinite id is rejected.
func Group(rows []models.DetectionRow, field string) (*Groups, error) {
	g := &Groups{ByID: make(map[float64][]models.DetectionRow)}
	for _, row := range rows {
		id, ok := row.Float(field)
		if !ok {
			return nil, &models.MissingFieldError{Field: field}
		}
		if math.IsNaN(id) || math.IsInf(id, 0) {
			return nil, fmt.Errorf("field %s holds non-finite track id %v", field, id)
		}
		if _, seen := g.ByID[id]; !seen {
			g.IDs = append(g.IDs, id)
		}
		g.ByID[id] = append(g.ByID[id], row)
	}
	sort.Float64s(g.IDs)
	return g, nil
}

// Len returns the number of tracks.
func (g *Groups) Len() int {
	return len(g.IDs)
}

// Limit keeps the first n track ids. n <= 0 keeps every track.
func (g *Groups) Limit(n int) *Groups {
	if n <= 0 || n >= len(g.IDs) {
		return g
	}
	out := &Groups{IDs: g.IDs[:n:n], ByID: make(map[float64][]models.DetectionRow, n)}
	for _, id := range out.IDs {
		out.ByID[id] = g.ByID[id]
	}
	return out
}
