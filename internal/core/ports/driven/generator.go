package driven

import "context"

// Generator is the external generative-language service.
// Output is free text with no structural guarantees.
type Generator interface {
	// Generate returns the model's completion for prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model name being used
	Model() string

	// Close releases resources held by the generator
	Close() error
}
