package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dialectbot/internal/domain"
)

// Failover tries multiple generators in order, falling back to the next one
// when the current fails.
type Failover struct {
	generators []domain.Generator
	logger     *slog.Logger
}

// NewFailover creates a failover chain from the given generators. At least
// one generator is required.
func NewFailover(generators []domain.Generator, logger *slog.Logger) *Failover {
	return &Failover{
		generators: generators,
		logger:     logger,
	}
}

func (f *Failover) Name() string {
	names := make([]string, len(f.generators))
	for i, g := range f.generators {
		names[i] = g.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

func (f *Failover) Healthy(ctx context.Context) error {
	for _, g := range f.generators {
		if err := g.Healthy(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no healthy generator in failover chain")
}

// Generate tries each generator in order and returns the first successful
// response.
func (f *Failover) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	var lastErr error
	for i, g := range f.generators {
		text, err := g.Generate(ctx, req)
		if err == nil {
			if i > 0 {
				f.logger.Info("Failover used fallback generator",
					"generator", g.Name(),
					"attempt", i+1)
			}
			return text, nil
		}
		lastErr = err
		f.logger.Warn("Generator failed, trying next",
			"generator", g.Name(),
			"attempt", i+1,
			"error", err)
	}
	return "", fmt.Errorf("all generators in failover chain failed: %w", lastErr)
}
