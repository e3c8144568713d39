package csvfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

var _ driven.TableSource = (*LongSource)(nil)

// SectorFilter maps a sector to the sub-sectors kept from a long-format file.
type SectorFilter map[string][]string

// DefaultSectorFilter keeps commercial and residential real estate.
func DefaultSectorFilter() SectorFilter {
	return SectorFilter{"Real Estate": {"Commercial", "Residential"}}
}

func (f SectorFilter) allows(sector, subSector string) bool {
	for s, subs := range f {
		if !strings.EqualFold(s, sector) {
			continue
		}
		for _, sub := range subs {
			if strings.EqualFold(sub, subSector) {
				return true
			}
		}
	}
	return false
}

// LongSource reads a long-format file with columns
// Year, Sector, Sub_Sector, District, Indicator, Value.
// Rows are restricted to the latest year and the sector filter; if that
// leaves nothing every row is kept. Pivoting happens in the normaliser.
type LongSource struct {
	path   string
	filter SectorFilter
}

// NewLongSource creates a long-format file source. A nil filter uses
// DefaultSectorFilter.
func NewLongSource(path string, filter SectorFilter) *LongSource {
	if filter == nil {
		filter = DefaultSectorFilter()
	}
	return &LongSource{path: path, filter: filter}
}

func (s *LongSource) Name() string                { return "csv-long:" + filepath.Base(s.path) }
func (s *LongSource) Origin() domain.SourceOrigin { return domain.OriginLocal }
func (s *LongSource) Priority() int               { return LongPriority }

// Fetch reads and restricts the file.
func (s *LongSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := readFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	for _, col := range []string{"District", "Indicator", "Value"} {
		if table.ColumnIndex(col) < 0 {
			return nil, fmt.Errorf("%s: missing column %s: %w", s.path, col, domain.ErrSchemaMismatch)
		}
	}
	return s.restrict(table), nil
}

func (s *LongSource) restrict(table *domain.RawTable) *domain.RawTable {
	yearCol := table.ColumnIndex("Year")
	sectorCol := table.ColumnIndex("Sector")
	subCol := table.ColumnIndex("Sub_Sector")

	latest, hasYear := 0, false
	if yearCol >= 0 {
		for i := range table.Rows {
			if y, err := strconv.Atoi(table.Cell(i, yearCol)); err == nil && (!hasYear || y > latest) {
				latest, hasYear = y, true
			}
		}
	}

	var kept [][]string
	for i, row := range table.Rows {
		if hasYear {
			if y, err := strconv.Atoi(table.Cell(i, yearCol)); err != nil || y != latest {
				continue
			}
		}
		if sectorCol >= 0 && subCol >= 0 && !s.filter.allows(table.Cell(i, sectorCol), table.Cell(i, subCol)) {
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return table
	}
	return domain.NewRawTable(table.Columns, kept)
}
