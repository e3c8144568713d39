package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// Backends are fixed at startup; the generator flag changes when the
// generator is swapped. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SummaryBackend string // "redis", "postgres" or "memory"
	LockBackend    string // "redis", "postgres" or "none"

	// Dynamic capability flags
	generatorAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(summaryBackend, lockBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SummaryBackend: summaryBackend,
		LockBackend:    lockBackend,
	}
}

// GeneratorAvailable returns whether a generative service is configured
func (c *RuntimeConfig) GeneratorAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatorAvailable
}

// SetGeneratorAvailable updates the generator availability flag
func (c *RuntimeConfig) SetGeneratorAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generatorAvailable = available
}

// SharedCache returns true if the macro cache is shared across instances
func (c *RuntimeConfig) SharedCache() bool {
	return c.SummaryBackend == "redis" || c.SummaryBackend == "postgres"
}
