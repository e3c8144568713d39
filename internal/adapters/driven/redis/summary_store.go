package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

var _ driven.SummaryStore = (*SummaryStore)(nil)

const (
	summaryKey = "marketlens:macro:summary"

	// DefaultSummaryTTL bounds how long a shared snapshot outlives its writer.
	DefaultSummaryTTL = 48 * time.Hour
)

// SummaryStore shares the macro snapshot between instances as one JSON value.
type SummaryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryStore creates a Redis-backed summary store. A non-positive ttl
// uses DefaultSummaryTTL.
func NewSummaryStore(client *redis.Client, ttl time.Duration) *SummaryStore {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &SummaryStore{client: client, ttl: ttl}
}

// Load returns the stored snapshot or domain.ErrNotFound.
func (s *SummaryStore) Load(ctx context.Context) (*domain.MacroSnapshot, error) {
	data, err := s.client.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get macro summary: %w", err)
	}

	var snapshot domain.MacroSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal macro summary: %w", err)
	}
	return &snapshot, nil
}

// Save replaces the stored snapshot.
func (s *SummaryStore) Save(ctx context.Context, snapshot *domain.MacroSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("save macro summary: %w", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal macro summary: %w", err)
	}
	if err := s.client.Set(ctx, summaryKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set macro summary: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (s *SummaryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
