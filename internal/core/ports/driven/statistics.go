package driven

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// IndicatorFetcher reads national indicator series from a statistical API.
type IndicatorFetcher interface {
	// FetchSeries returns up to periods most recent non-null observations
	// for the indicator code, ascending by year.
	FetchSeries(ctx context.Context, code string, periods int) (domain.IndicatorSeries, error)
}
