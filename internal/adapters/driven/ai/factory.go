// Package ai builds the generative-language adapter from settings.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/marketlens/internal/core/domain"
	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
)

// Provider names a generative backend.
type Provider string

const ProviderGemini Provider = "gemini"

// Settings selects and configures the generator.
type Settings struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string // Overrides the API endpoint, tests only
}

// IsConfigured returns true when a generator can be built from s.
func (s Settings) IsConfigured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// NewGenerator creates the generator named by settings.
// Returns nil, nil when no API key is configured: the orchestrator then
// degrades every generation step.
func NewGenerator(ctx context.Context, settings Settings) (driven.Generator, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderGemini, "":
		return NewGemini(ctx, settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown generator provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
