package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

var _ driven.SummaryStore = (*SummaryStore)(nil)

// SummaryStore keeps the shared macro snapshot in the single-row
// macro_snapshots table.
type SummaryStore struct {
	db *DB
}

// NewSummaryStore creates a PostgreSQL-backed summary store
func NewSummaryStore(db *DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Load returns the stored snapshot or domain.ErrNotFound.
func (s *SummaryStore) Load(ctx context.Context) (*domain.MacroSnapshot, error) {
	var (
		raw      []byte
		snapshot domain.MacroSnapshot
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT summary, fetched_at FROM macro_snapshots WHERE id = 1`,
	).Scan(&raw, &snapshot.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load macro snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snapshot.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal macro snapshot: %w", err)
	}
	return &snapshot, nil
}

// Save upserts the snapshot.
func (s *SummaryStore) Save(ctx context.Context, snapshot *domain.MacroSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("save macro snapshot: %w", domain.ErrInvalidInput)
	}
	raw, err := json.Marshal(snapshot.Summary)
	if err != nil {
		return fmt.Errorf("marshal macro snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO macro_snapshots (id, summary, fetched_at, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET summary = EXCLUDED.summary, fetched_at = EXCLUDED.fetched_at, updated_at = NOW()`,
		raw, snapshot.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("save macro snapshot: %w", err)
	}
	return nil
}

// Ping checks if the database is reachable
func (s *SummaryStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
