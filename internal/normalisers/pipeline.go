package normalisers

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*Pipeline)(nil)

// Frame is the working table passed between stages.
// Stages rewrite it in place; it never escapes a single Normalise call.
type Frame struct {
	Columns []string
	Rows    [][]string
	Info    domain.SourceInfo
	Report  *domain.NormaliseReport

	// Texts holds one index text per row, filled by the text stage
	Texts []string

	rng *rand.Rand
}

// Index returns the position of a column (case-insensitive), or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at (row, col), or "" when out of range.
func (f *Frame) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(f.Rows) || col >= len(f.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(f.Rows[row][col])
}

// AddColumn appends a column filled by fill(row).
func (f *Frame) AddColumn(name string, fill func(row int) string) int {
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], fill(i))
	}
	return len(f.Columns) - 1
}

// Stage is one step of the normalisation pipeline.
type Stage interface {
	// Apply rewrites the frame. An error rejects the whole table.
	Apply(f *Frame) error

	// Name returns the stage name for logging/debugging.
	Name() string

	// Order returns the stage position in the pipeline (lower = earlier).
	Order() int
}

// Config holds the pipeline settings.
type Config struct {
	// Seed makes synthesized values reproducible. Zero picks a random seed.
	Seed uint64

	// Now stamps Dataset.BuiltAt
	Now func() time.Time

	Logger *slog.Logger
}

// Pipeline implements Normaliser.
// It chains stages in order and builds a Dataset from the final frame.
type Pipeline struct {
	mu     sync.RWMutex
	stages []Stage
	sorted bool

	seed   uint64
	now    func() time.Time
	logger *slog.Logger
}

// NewPipeline creates a pipeline with no stages.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		stages: make([]Stage, 0),
		seed:   cfg.Seed,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
}

// Add adds a stage to the pipeline.
// Stages are sorted by Order() before processing.
func (p *Pipeline) Add(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stages = append(p.stages, stage)
	p.sorted = false
}

// List returns stage names in order.
func (p *Pipeline) List() []string {
	stages := p.ordered()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name()
	}
	return names
}

func (p *Pipeline) ordered() []Stage {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.sorted {
		sort.SliceStable(p.stages, func(i, j int) bool {
			return p.stages[i].Order() < p.stages[j].Order()
		})
		p.sorted = true
	}
	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

// Normalise runs every stage over a copy of raw and builds the Dataset.
func (p *Pipeline) Normalise(raw *domain.RawTable, info domain.SourceInfo) (*domain.Dataset, *domain.NormaliseReport, error) {
	if raw.IsEmpty() {
		return nil, nil, fmt.Errorf("normalise %s: empty table: %w", info.Name, domain.ErrSchemaMismatch)
	}

	seed := p.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	work := raw.Clone()
	f := &Frame{
		Columns: work.Columns,
		Rows:    work.Rows,
		Info:    info,
		Report:  domain.NewNormaliseReport(info),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}

	for _, stage := range p.ordered() {
		if err := stage.Apply(f); err != nil {
			return nil, nil, fmt.Errorf("normalise %s: stage %s: %w", info.Name, stage.Name(), err)
		}
	}

	ds := p.build(f)
	f.Report.Rows = len(ds.Records)
	if f.Report.Degraded() {
		p.logger.Warn("dataset normalised with repairs",
			"source", info.Name,
			"synthesized", f.Report.Synthesized,
			"coerced_cells", f.Report.CoercedCells)
	}
	return ds, f.Report, nil
}

func (p *Pipeline) build(f *Frame) *domain.Dataset {
	idx := map[string]int{
		domain.FieldDistrict:          f.Index(domain.FieldDistrict),
		domain.FieldAvgRent:           f.Index(domain.FieldAvgRent),
		domain.FieldFootTraffic:       f.Index(domain.FieldFootTraffic),
		domain.FieldCompetitorDensity: f.Index(domain.FieldCompetitorDensity),
		domain.FieldSourceID:          f.Index(domain.FieldSourceID),
	}

	var extras []int
	var extraNames []string
	for i, c := range f.Columns {
		if !isCanonicalIndex(idx, i) {
			extras = append(extras, i)
			extraNames = append(extraNames, c)
		}
	}

	ds := &domain.Dataset{
		Records:      make([]domain.Record, 0, len(f.Rows)),
		ExtraColumns: extraNames,
		Source:       f.Info.Name,
		Origin:       f.Info.Origin,
		Synthesized:  append([]string(nil), f.Report.Synthesized...),
		BuiltAt:      p.now(),
	}
	for row := range f.Rows {
		rec := domain.Record{
			SourceID:          f.Cell(row, idx[domain.FieldSourceID]),
			District:          f.Cell(row, idx[domain.FieldDistrict]),
			AvgRent:           parseNumber(f.Cell(row, idx[domain.FieldAvgRent])),
			FootTraffic:       parseNumber(f.Cell(row, idx[domain.FieldFootTraffic])),
			CompetitorDensity: domain.Density(f.Cell(row, idx[domain.FieldCompetitorDensity])),
		}
		if row < len(f.Texts) {
			rec.Text = f.Texts[row]
		}
		if len(extras) > 0 {
			rec.Extra = make(map[string]string, len(extras))
			for k, col := range extras {
				rec.Extra[extraNames[k]] = f.Cell(row, col)
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds
}

func isCanonicalIndex(idx map[string]int, i int) bool {
	for _, v := range idx {
		if v == i {
			return true
		}
	}
	return false
}

// DefaultPipeline creates a pipeline with every standard stage.
func DefaultPipeline(cfg Config) *Pipeline {
	p := NewPipeline(cfg)
	rules := DefaultRegistry()
	p.Add(&HeaderStage{Rules: rules})
	p.Add(&PivotStage{Rules: rules})
	p.Add(&ColumnStage{Rules: rules})
	p.Add(&SynthesizeStage{})
	p.Add(&CoerceStage{})
	p.Add(&IdentityStage{})
	p.Add(&TextStage{})
	return p
}
