package mocks

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// MockNormaliser is a mock implementation of Normaliser for testing.
// By default it maps the canonical columns by exact name and numbers rows MOCK_001...
type MockNormaliser struct {
	mu    sync.Mutex
	calls []domain.SourceInfo

	NormaliseFn func(raw *domain.RawTable, info domain.SourceInfo) (*domain.Dataset, *domain.NormaliseReport, error)
}

func NewMockNormaliser() *MockNormaliser {
	return &MockNormaliser{}
}

func (m *MockNormaliser) Normalise(raw *domain.RawTable, info domain.SourceInfo) (*domain.Dataset, *domain.NormaliseReport, error) {
	m.mu.Lock()
	m.calls = append(m.calls, info)
	m.mu.Unlock()

	if m.NormaliseFn != nil {
		return m.NormaliseFn(raw, info)
	}

	report := domain.NewNormaliseReport(info)
	ds := &domain.Dataset{Source: info.Name, Origin: info.Origin}
	district := raw.ColumnIndex(domain.FieldDistrict)
	for i := range raw.Rows {
		r := domain.Record{
			SourceID:          fmt.Sprintf("%s_%03d", info.Origin.IDPrefix(), i+1),
			District:          raw.Cell(i, district),
			CompetitorDensity: domain.DensityLow,
		}
		r.Text = r.District
		ds.Records = append(ds.Records, r)
	}
	report.Rows = len(ds.Records)
	return ds, report, nil
}

// Calls returns the sources normalised so far, in order.
func (m *MockNormaliser) Calls() []domain.SourceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SourceInfo, len(m.calls))
	copy(out, m.calls)
	return out
}

