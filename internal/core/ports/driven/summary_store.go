package driven

import (
	"context"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// SummaryStore shares macro snapshots between instances.
type SummaryStore interface {
	// Load returns the stored snapshot, or domain.ErrNotFound
	Load(ctx context.Context) (*domain.MacroSnapshot, error)

	// Save replaces the stored snapshot
	Save(ctx context.Context, snapshot *domain.MacroSnapshot) error

	// Ping checks if the store backend is healthy
	Ping(ctx context.Context) error
}
