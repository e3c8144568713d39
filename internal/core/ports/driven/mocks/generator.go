package mocks

import (
	"context"
	"sync"
)

// MockGenerator is a mock implementation of Generator for testing.
// Responses are produced by GenerateFn, or Response/Err when it is nil.
type MockGenerator struct {
	mu      sync.Mutex
	prompts []string

	GenerateFn func(prompt string) (string, error)
	Response   string
	Err        error
}

// NewMockGenerator creates a generator that always answers response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.GenerateFn != nil {
		return m.GenerateFn(prompt)
	}
	return m.Response, m.Err
}

func (m *MockGenerator) Model() string {
	return "mock-model"
}

func (m *MockGenerator) Close() error {
	return nil
}

// Prompts returns every prompt received, in order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "".
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
