package driving

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// MacroService exposes national indicators.
type MacroService interface {
	// Summary returns the latest value and trend per tracked indicator
	Summary(ctx context.Context) domain.MacroSummary

	// SectorSeries returns the sector share-of-GDP series for charts
	SectorSeries(ctx context.Context) []domain.SectorSeries

	// Refresh fetches now, ignoring the cache age
	Refresh(ctx context.Context) (domain.MacroSummary, error)
}
