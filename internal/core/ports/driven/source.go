package driven

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// TableSource produces a raw table from one place (spreadsheet, file, built-in).
type TableSource interface {
	// Name identifies the source in logs and dataset metadata
	Name() string

	// Origin decides the citation prefix of generated source IDs
	Origin() domain.SourceOrigin

	// Priority orders sources; the highest priority is tried first
	Priority() int

	// Fetch reads the table. Any error makes the resolver move on.
	Fetch(ctx context.Context) (*domain.RawTable, error)
}
