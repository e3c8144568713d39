package domain

import "strings"

// SourceOrigin identifies which class of source produced a table.
// The origin decides the prefix of generated source identifiers.
type SourceOrigin string

const (
	OriginRemote   SourceOrigin = "remote"   // Remote spreadsheet
	OriginLocal    SourceOrigin = "local"    // Local CSV file
	OriginFallback SourceOrigin = "fallback" // Built-in table
)

// IDPrefix returns the citation prefix used when a row carries no Source_ID.
func (o SourceOrigin) IDPrefix() string {
	switch o {
	case OriginRemote:
		return "FS_CAI"
	case OriginLocal:
		return "FS_LOC"
	default:
		return "MOCK"
	}
}

// RawTable is spreadsheet-shaped input of unknown schema.
// Cells are kept as text; an empty cell means missing.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// NewRawTable creates a table, padding or truncating rows to the header width.
func NewRawTable(columns []string, rows [][]string) *RawTable {
	t := &RawTable{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		t.Rows = append(t.Rows, fitRow(row, len(columns)))
	}
	return t
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty returns true if the table has no columns or no rows.
func (t *RawTable) IsEmpty() bool {
	return t == nil || len(t.Columns) == 0 || len(t.Rows) == 0
}

// ColumnIndex returns the index of the named column, or -1.
// Matching ignores surrounding whitespace and case.
func (t *RawTable) ColumnIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell value, or "" when out of range.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Clone returns a deep copy of the table.
func (t *RawTable) Clone() *RawTable {
	if t == nil {
		return nil
	}
	return NewRawTable(t.Columns, t.Rows)
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
