package domain

import "context"

// Generator is the interface all text generators must implement.
// The orchestrator composes the full prompt; generators only complete it.
type Generator interface {
	// Generate returns the raw completion for the given prompt. The returned
	// text may still contain the prompt or the reply marker; the caller is
	// responsible for extracting the reply.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Name() string
	Healthy(ctx context.Context) error
}

type GenerateRequest struct {
	Prompt      string
	Dialect     string
	MaxTokens   int
	Temperature float64
}
