package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/marketlens/internal/core/ports/driven"
	"google.golang.org/genai"
)

var _ driven.Generator = (*Gemini)(nil)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini implements driven.Generator with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator. baseURL is normally empty.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate returns the text of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return result.Text(), nil
}

// Ping checks that the model exists and the key is accepted.
func (g *Gemini) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini model %s: %w", g.model, err)
	}
	return nil
}

// Model returns the model name being used
func (g *Gemini) Model() string {
	return g.model
}

// Close is a no-op; the client holds no releasable resources.
func (g *Gemini) Close() error {
	return nil
}
