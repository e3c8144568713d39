package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// MockTableSource is a mock implementation of TableSource for testing.
type MockTableSource struct {
	mu    sync.Mutex
	calls int

	SourceName     string
	SourceOrigin   domain.SourceOrigin
	SourcePriority int
	Table          *domain.RawTable
	Err            error
}

// NewMockTableSource creates a source returning table.
func NewMockTableSource(name string, origin domain.SourceOrigin, priority int, table *domain.RawTable) *MockTableSource {
	return &MockTableSource{
		SourceName:     name,
		SourceOrigin:   origin,
		SourcePriority: priority,
		Table:          table,
	}
}

func (m *MockTableSource) Name() string                { return m.SourceName }
func (m *MockTableSource) Origin() domain.SourceOrigin { return m.SourceOrigin }
func (m *MockTableSource) Priority() int               { return m.SourcePriority }

func (m *MockTableSource) Fetch(ctx context.Context) (*domain.RawTable, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Table.Clone(), nil
}

// Calls returns how many times Fetch was called.
func (m *MockTableSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
