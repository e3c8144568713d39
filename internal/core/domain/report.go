package domain

import "sort"

// SourceInfo describes where a raw table came from.
type SourceInfo struct {
	Name   string       `json:"name"`
	Origin SourceOrigin `json:"origin"`
}

// NormaliseReport records every repair applied while normalising a table.
// A non-trivial report means the dataset is degraded in a visible way.
type NormaliseReport struct {
	Source         SourceInfo        `json:"source"`
	HeaderPromoted bool              `json:"header_promoted"`
	Pivoted        bool              `json:"pivoted"`
	ColumnMapping  map[string]string `json:"column_mapping,omitempty"` // source column -> canonical field
	Synthesized    []string          `json:"synthesized,omitempty"`
	CoercedCells   int               `json:"coerced_cells"`
	GeneratedIDs   bool              `json:"generated_ids"`
	Rows           int               `json:"rows"`
}

// NewNormaliseReport creates an empty report for a source.
func NewNormaliseReport(info SourceInfo) *NormaliseReport {
	return &NormaliseReport{
		Source:        info,
		ColumnMapping: make(map[string]string),
	}
}

// Degraded returns true if any field had to be synthesized or coerced.
func (r *NormaliseReport) Degraded() bool {
	if r == nil {
		return false
	}
	return len(r.Synthesized) > 0 || r.CoercedCells > 0
}

// MappedColumns returns the renamed source columns in sorted order.
func (r *NormaliseReport) MappedColumns() []string {
	cols := make([]string, 0, len(r.ColumnMapping))
	for c := range r.ColumnMapping {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
