package normalisers

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// Verify interface compliance
var (
	_ Stage = (*HeaderStage)(nil)
	_ Stage = (*PivotStage)(nil)
	_ Stage = (*ColumnStage)(nil)
	_ Stage = (*SynthesizeStage)(nil)
	_ Stage = (*CoerceStage)(nil)
	_ Stage = (*IdentityStage)(nil)
	_ Stage = (*TextStage)(nil)
)

var placeholderHeader = regexp.MustCompile(`^(unnamed.*|column\s*_?\d+)$`)

// HeaderStage promotes the first data row to header when at least half of
// the header cells are placeholders (blank, "Unnamed: 0", "Column 3") and
// no header cell names a known column. Numeric names such as years are real
// headers.
type HeaderStage struct {
	Rules *Registry
}

func (s *HeaderStage) Name() string { return "header" }
func (s *HeaderStage) Order() int   { return 0 }

func (s *HeaderStage) Apply(f *Frame) error {
	if len(f.Columns) == 0 || len(f.Rows) == 0 {
		return nil
	}

	placeholders := 0
	for _, c := range f.Columns {
		if isPlaceholder(c) {
			placeholders++
			continue
		}
		if s.Rules != nil {
			if _, ok := s.Rules.Match(c); ok {
				return nil
			}
		}
	}
	if placeholders*2 < len(f.Columns) {
		return nil
	}

	header := make([]string, len(f.Columns))
	for i := range header {
		header[i] = f.Cell(0, i)
	}
	f.Columns = header
	f.Rows = f.Rows[1:]
	f.Report.HeaderPromoted = true

	if len(f.Rows) == 0 {
		return fmt.Errorf("no data rows below promoted header: %w", domain.ErrSchemaMismatch)
	}
	return nil
}

func isPlaceholder(c string) bool {
	c = strings.ToLower(strings.TrimSpace(c))
	return c == "" || placeholderHeader.MatchString(c)
}

// PivotStage turns a long table (entity, Indicator, Value) into one row per
// entity with one column per indicator. Entities and indicators keep their
// first-seen order. Numeric cells are averaged; anything else keeps the
// first non-empty value.
type PivotStage struct {
	Rules *Registry
}

func (s *PivotStage) Name() string { return "pivot" }
func (s *PivotStage) Order() int   { return 10 }

func (s *PivotStage) Apply(f *Frame) error {
	indicatorCol := f.Index("Indicator")
	valueCol := f.Index("Value")
	if indicatorCol < 0 || valueCol < 0 {
		return nil
	}
	keyCol := s.findColumn(f, domain.FieldDistrict, indicatorCol, valueCol)
	if keyCol < 0 {
		return nil
	}
	idCol := s.findColumn(f, domain.FieldSourceID, indicatorCol, valueCol)

	type entity struct {
		key      string
		sourceID string
		values   map[string][]string
	}
	var (
		entities   []*entity
		byKey      = make(map[string]*entity)
		indicators []string
		seenInd    = make(map[string]bool)
	)
	for row := range f.Rows {
		key := f.Cell(row, keyCol)
		ind := f.Cell(row, indicatorCol)
		if key == "" || ind == "" {
			continue
		}
		e, ok := byKey[key]
		if !ok {
			e = &entity{key: key, values: make(map[string][]string)}
			byKey[key] = e
			entities = append(entities, e)
		}
		if !seenInd[ind] {
			seenInd[ind] = true
			indicators = append(indicators, ind)
		}
		if v := f.Cell(row, valueCol); v != "" {
			e.values[ind] = append(e.values[ind], v)
		}
		if e.sourceID == "" && idCol >= 0 {
			e.sourceID = f.Cell(row, idCol)
		}
	}
	if len(entities) == 0 {
		return fmt.Errorf("long table has no entity rows: %w", domain.ErrSchemaMismatch)
	}

	columns := append([]string{f.Columns[keyCol]}, indicators...)
	if idCol >= 0 {
		columns = append(columns, f.Columns[idCol])
	}
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		row := make([]string, 0, len(columns))
		row = append(row, e.key)
		for _, ind := range indicators {
			row = append(row, aggregate(e.values[ind]))
		}
		if idCol >= 0 {
			row = append(row, e.sourceID)
		}
		rows = append(rows, row)
	}

	f.Columns = columns
	f.Rows = rows
	f.Report.Pivoted = true
	return nil
}

func (s *PivotStage) findColumn(f *Frame, target string, skip ...int) int {
	rules := s.Rules
	if rules == nil {
		rules = DefaultRegistry()
	}
	for i, c := range f.Columns {
		if containsInt(skip, i) {
			continue
		}
		if rule, ok := rules.Match(c); ok && rule.Target == target {
			return i
		}
	}
	return -1
}

// aggregate returns the mean when every value is numeric, else the first value.
func aggregate(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sum := 0.0
	for _, v := range values {
		n, ok := parseFloat(v)
		if !ok {
			return values[0]
		}
		sum += n
	}
	return domain.FormatNumber(sum / float64(len(values)))
}

// ColumnStage renames source columns to canonical fields using the rule registry.
type ColumnStage struct {
	Rules *Registry
}

func (s *ColumnStage) Name() string { return "columns" }
func (s *ColumnStage) Order() int   { return 20 }

func (s *ColumnStage) Apply(f *Frame) error {
	rules := s.Rules
	if rules == nil {
		rules = DefaultRegistry()
	}
	for i, target := range rules.Resolve(f.Columns) {
		if f.Columns[i] != target {
			f.Report.ColumnMapping[f.Columns[i]] = target
		}
		f.Columns[i] = target
	}
	return nil
}

var synthDensities = []domain.Density{domain.DensityLow, domain.DensityMedium, domain.DensityHigh}

// SynthesizeStage fills absent required fields with random values:
// integers in [10, 1000) for rent and traffic, a density category otherwise.
type SynthesizeStage struct{}

func (s *SynthesizeStage) Name() string { return "synthesize" }
func (s *SynthesizeStage) Order() int   { return 30 }

func (s *SynthesizeStage) Apply(f *Frame) error {
	for _, field := range domain.RequiredFields {
		if f.Index(field) >= 0 {
			continue
		}
		switch field {
		case domain.FieldCompetitorDensity:
			f.AddColumn(field, func(int) string {
				return string(synthDensities[f.rng.IntN(len(synthDensities))])
			})
		default:
			f.AddColumn(field, func(int) string {
				return strconv.Itoa(10 + f.rng.IntN(990))
			})
		}
		f.Report.Synthesized = append(f.Report.Synthesized, field)
	}
	return nil
}

// CoerceStage parses numeric and density cells. Unparseable, negative or
// non-finite numbers become 0; unknown densities are derived from traffic.
type CoerceStage struct{}

func (s *CoerceStage) Name() string { return "coerce" }
func (s *CoerceStage) Order() int   { return 40 }

func (s *CoerceStage) Apply(f *Frame) error {
	for _, field := range []string{domain.FieldAvgRent, domain.FieldFootTraffic} {
		col := f.Index(field)
		if col < 0 {
			return fmt.Errorf("%s missing after synthesis: %w", field, domain.ErrSchemaMismatch)
		}
		for row := range f.Rows {
			v, ok := parseFloat(f.Cell(row, col))
			if !ok || v < 0 {
				v = 0
				f.Report.CoercedCells++
			}
			f.Rows[row][col] = domain.FormatNumber(v)
		}
	}

	densityCol := f.Index(domain.FieldCompetitorDensity)
	trafficCol := f.Index(domain.FieldFootTraffic)
	if densityCol < 0 {
		return fmt.Errorf("%s missing after synthesis: %w", domain.FieldCompetitorDensity, domain.ErrSchemaMismatch)
	}
	for row := range f.Rows {
		d, ok := domain.ParseDensity(f.Cell(row, densityCol))
		if !ok {
			d = domain.DensityFromTraffic(parseNumber(f.Cell(row, trafficCol)))
			f.Report.CoercedCells++
		}
		f.Rows[row][densityCol] = string(d)
	}
	return nil
}

// IdentityStage keeps Source_ID when every row has a unique, non-empty value
// and otherwise numbers the rows <PREFIX>_001, <PREFIX>_002, ...
type IdentityStage struct{}

func (s *IdentityStage) Name() string { return "identity" }
func (s *IdentityStage) Order() int   { return 50 }

func (s *IdentityStage) Apply(f *Frame) error {
	col := f.Index(domain.FieldSourceID)
	if col >= 0 && uniqueNonEmpty(f, col) {
		return nil
	}

	prefix := f.Info.Origin.IDPrefix()
	gen := func(row int) string { return fmt.Sprintf("%s_%03d", prefix, row+1) }
	if col < 0 {
		f.AddColumn(domain.FieldSourceID, gen)
	} else {
		for row := range f.Rows {
			f.Rows[row][col] = gen(row)
		}
	}
	f.Report.GeneratedIDs = true
	return nil
}

func uniqueNonEmpty(f *Frame, col int) bool {
	seen := make(map[string]bool, len(f.Rows))
	for row := range f.Rows {
		id := f.Cell(row, col)
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// TextStage builds the text each row is indexed by.
type TextStage struct{}

func (s *TextStage) Name() string { return "text" }
func (s *TextStage) Order() int   { return 60 }

func (s *TextStage) Apply(f *Frame) error {
	district := f.Index(domain.FieldDistrict)
	rent := f.Index(domain.FieldAvgRent)
	traffic := f.Index(domain.FieldFootTraffic)
	density := f.Index(domain.FieldCompetitorDensity)

	f.Texts = make([]string, len(f.Rows))
	for row := range f.Rows {
		d := f.Cell(row, district)
		r, t, c := f.Cell(row, rent), f.Cell(row, traffic), f.Cell(row, density)
		if d != "" && r != "" && t != "" && c != "" {
			f.Texts[row] = fmt.Sprintf("%s %s rent price %s traffic %s competitors %s", d, d, r, t, c)
			continue
		}
		parts := make([]string, 0, len(f.Columns))
		for col := range f.Columns {
			if v := f.Cell(row, col); v != "" {
				parts = append(parts, v)
			}
		}
		f.Texts[row] = strings.Join(parts, " ")
	}
	return nil
}

// parseFloat parses a number, tolerating thousands separators.
// Non-finite values are rejected.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseNumber is parseFloat with 0 for anything unusable.
func parseNumber(s string) float64 {
	v, ok := parseFloat(s)
	if !ok || v < 0 {
		return 0
	}
	return v
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
