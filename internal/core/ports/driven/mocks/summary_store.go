package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// MockSummaryStore is an in-memory SummaryStore for testing.
type MockSummaryStore struct {
	mu       sync.Mutex
	snapshot *domain.MacroSnapshot
	saves    int

	LoadErr error
	SaveErr error
}

// NewMockSummaryStore creates an empty store.
func NewMockSummaryStore() *MockSummaryStore {
	return &MockSummaryStore{}
}

func (m *MockSummaryStore) Load(ctx context.Context) (*domain.MacroSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.snapshot == nil {
		return nil, domain.ErrNotFound
	}
	snap := *m.snapshot
	return &snap, nil
}

func (m *MockSummaryStore) Save(ctx context.Context, snapshot *domain.MacroSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	snap := *snapshot
	m.snapshot = &snap
	m.saves++
	return nil
}

func (m *MockSummaryStore) Ping(ctx context.Context) error {
	return nil
}

// Put seeds the store directly (for test setup).
func (m *MockSummaryStore) Put(snapshot *domain.MacroSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
}

// Saves returns how many snapshots were saved.
func (m *MockSummaryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
