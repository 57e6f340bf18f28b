package generator

import (
	"fmt"
	"log/slog"
	"sync"

	"dialectbot/internal/config"
	"dialectbot/internal/domain"
)

// Constructor creates a generator from a config entry.
type Constructor func(gc config.GeneratorConfig, logger *slog.Logger) domain.Generator

// Factory creates and caches generators from config.
type Factory struct {
	cfg          *config.Config
	logger       *slog.Logger
	constructors map[string]Constructor
	cache        map[string]domain.Generator
	mu           sync.RWMutex
}

// NewFactory creates a generator factory with the built-in constructors
// registered.
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]Constructor),
		cache:        make(map[string]domain.Generator),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a generator constructor by kind,
// so alternative backends can be registered at runtime.
func (f *Factory) RegisterConstructor(kind string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[kind] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["ollama"] = func(gc config.GeneratorConfig, logger *slog.Logger) domain.Generator {
		return NewOllama(OllamaConfig{APIBase: gc.APIBase, DefaultModel: gc.DefaultModel, Logger: logger})
	}
	f.constructors["openai"] = func(gc config.GeneratorConfig, logger *slog.Logger) domain.Generator {
		return NewOpenAI(OpenAIConfig{APIKey: gc.APIKey, APIBase: gc.APIBase, Model: gc.DefaultModel, Logger: logger})
	}
	f.constructors["static"] = func(gc config.GeneratorConfig, logger *slog.Logger) domain.Generator {
		return NewStatic()
	}
}

// Get returns the generator with the given name, or the default if name is
// empty. Created generators are cached so the same instance is reused.
// Uses double-check locking to avoid TOCTOU races.
func (f *Factory) Get(name string) (domain.Generator, error) {
	if name == "" {
		name = f.cfg.General.DefaultGenerator
	}

	// Fast path: read lock.
	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	// Slow path: write lock with double-check.
	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	gc, ok := f.cfg.Generators[name]
	if !ok {
		return nil, fmt.Errorf("generator %q not configured", name)
	}
	if !gc.Enabled {
		return nil, fmt.Errorf("generator %q is disabled", name)
	}
	// An omitted kind means the entry name doubles as the kind, so
	// "generators.ollama" works without a redundant kind field.
	kind := gc.Kind
	if kind == "" {
		kind = name
	}
	ctor, ok := f.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("generator %q has unknown kind %q", name, kind)
	}

	g := ctor(gc, f.logger.With("generator", name))
	f.cache[name] = g
	return g, nil
}

// Chain builds the failover generator the orchestrator uses: the default
// generator, then the configured failover chain, then the static fallback.
// The static terminal guarantees the chain itself never fully fails.
func (f *Factory) Chain() (domain.Generator, error) {
	names := append([]string{f.cfg.General.DefaultGenerator}, f.cfg.General.FailoverChain...)

	seen := make(map[string]bool)
	var generators []domain.Generator
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		g, err := f.Get(name)
		if err != nil {
			return nil, err
		}
		generators = append(generators, g)
	}

	hasStatic := false
	for _, g := range generators {
		if _, ok := g.(*Static); ok {
			hasStatic = true
			break
		}
	}
	if !hasStatic {
		generators = append(generators, NewStatic())
	}

	if len(generators) == 1 {
		return generators[0], nil
	}
	return NewFailover(generators, f.logger), nil
}
