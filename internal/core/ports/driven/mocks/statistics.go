package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/marketlens/internal/core/domain"
)

// MockIndicatorFetcher is a mock implementation of IndicatorFetcher for testing.
type MockIndicatorFetcher struct {
	mu     sync.Mutex
	series map[string]domain.IndicatorSeries
	errs   map[string]error
	calls  map[string]int

	// Delay is slept before answering, to widen race windows in tests
	Delay time.Duration
}

// NewMockIndicatorFetcher creates an empty fetcher.
// Codes with no series and no error return an empty series.
func NewMockIndicatorFetcher() *MockIndicatorFetcher {
	return &MockIndicatorFetcher{
		series: make(map[string]domain.IndicatorSeries),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetSeries sets the series returned for code.
func (m *MockIndicatorFetcher) SetSeries(code string, series domain.IndicatorSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[code] = series
}

// SetError makes code fail with err.
func (m *MockIndicatorFetcher) SetError(code string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[code] = err
}

func (m *MockIndicatorFetcher) FetchSeries(ctx context.Context, code string, periods int) (domain.IndicatorSeries, error) {
	m.mu.Lock()
	m.calls[code]++
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[code]; ok {
		return nil, fmt.Errorf("fetch %s: %w", code, err)
	}
	series := m.series[code]
	if len(series) > periods {
		series = series[len(series)-periods:]
	}
	out := make(domain.IndicatorSeries, len(series))
	copy(out, series)
	return out, nil
}

// Calls returns how many times code was fetched.
func (m *MockIndicatorFetcher) Calls(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[code]
}

// TotalCalls returns the number of fetches across all codes.
func (m *MockIndicatorFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}
