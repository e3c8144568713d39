package csvfile

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

var _ driven.TableSource = (*BuiltinSource)(nil)

var builtinColumns = []string{"District", "Avg_Rent_Sqm_EGP", "Foot_Traffic_Score", "Competitor_Density"}

var builtinRows = [][]string{
	{"Maadi", "350", "1500", "Medium"},
	{"Zamalek", "500", "3000", "Very High"},
	{"Nasr City", "200", "3500", "Very High"},
	{"New Cairo", "250", "1200", "Low"},
	{"6th of October", "180", "2000", "Medium"},
	{"Heliopolis", "280", "2200", "High"},
}

// BuiltinSource is the last-resort table. It never fails.
type BuiltinSource struct{}

// NewBuiltinSource creates the built-in source
func NewBuiltinSource() *BuiltinSource { return &BuiltinSource{} }

func (BuiltinSource) Name() string                { return "builtin" }
func (BuiltinSource) Origin() domain.SourceOrigin { return domain.OriginFallback }
func (BuiltinSource) Priority() int               { return BuiltinPriority }

// Fetch returns a fresh copy of the built-in table.
func (BuiltinSource) Fetch(context.Context) (*domain.RawTable, error) {
	return domain.NewRawTable(builtinColumns, builtinRows), nil
}
