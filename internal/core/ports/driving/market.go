package driving

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// MarketDataService exposes the current micro dataset.
type MarketDataService interface {
	// Filter returns copies of the records matching every set predicate
	Filter(ctx context.Context, filters domain.FilterSet) ([]domain.Record, error)

	// Search runs a similarity search over the published index
	Search(ctx context.Context, query string, topK int) (*domain.SearchResult, error)

	// Districts returns the sorted, unique district names
	Districts(ctx context.Context) ([]string, error)

	// Hierarchy returns the indicator tree for the data explorer
	Hierarchy(ctx context.Context) ([]domain.HierarchyNode, error)

	// Reload rebuilds the dataset and index from the sources
	Reload(ctx context.Context) (*domain.NormaliseReport, error)
}
