package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

// Services holds references to dynamically configurable services.
// The generator can be swapped at runtime; a nil generator means
// answers degrade to an error message.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	generator driven.Generator
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	if config == nil {
		config = domain.NewRuntimeConfig("memory", "none")
	}
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// Generator returns the current generator (may be nil)
func (s *Services) Generator() driven.Generator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator
}

// SetGenerator updates the generator.
// Closes the old generator if present. Updates config flags.
func (s *Services) SetGenerator(gen driven.Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generator != nil && s.generator != gen {
		_ = s.generator.Close()
	}

	s.generator = gen
	s.config.SetGeneratorAvailable(gen != nil)
}

// pinger is implemented by generators that can check connectivity cheaply.
type pinger interface {
	Ping(ctx context.Context) error
}

// ValidateAndSetGenerator checks connectivity (when supported) before setting the generator
func (s *Services) ValidateAndSetGenerator(ctx context.Context, gen driven.Generator) error {
	if gen == nil {
		s.SetGenerator(nil)
		return nil
	}

	if p, ok := gen.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			_ = gen.Close()
			return err
		}
	}

	s.SetGenerator(gen)
	return nil
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generator != nil {
		_ = s.generator.Close()
		s.generator = nil
	}
	s.config.SetGeneratorAvailable(false)

	return nil
}
