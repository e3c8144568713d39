package driving

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// QueryService answers natural-language market questions.
type QueryService interface {
	// Query classifies, retrieves evidence and generates one answer.
	// Collaborator failures and blank questions are reported in
	// QueryResult.Degradations; the result is always well formed.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// ProactiveInsight returns a one-sentence insight for the dashboard.
	// Never fails; a fixed hint is returned instead.
	ProactiveInsight(ctx context.Context, filters map[string]any, dataSummary string) string
}
