package driven

import (
	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// Normaliser turns a raw table of unknown schema into a canonical Dataset.
type Normaliser interface {
	// Normalise repairs, maps and completes the table.
	// An error rejects this table only; callers may try another source.
	Normalise(raw *domain.RawTable, info domain.SourceInfo) (*domain.Dataset, *domain.NormaliseReport, error)
}
