package generator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"dialectbot/internal/domain"
)

// mockGenerator implements domain.Generator for testing.
type mockGenerator struct {
	name    string
	healthy bool
	err     error
	text    string
	calls   int
}

func (m *mockGenerator) Name() string { return m.name }

func (m *mockGenerator) Healthy(ctx context.Context) error {
	if !m.healthy {
		return errors.New("unhealthy")
	}
	return nil
}

func (m *mockGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFailover_UsesFirstGenerator(t *testing.T) {
	g1 := &mockGenerator{name: "primary", healthy: true, text: "from-primary"}
	g2 := &mockGenerator{name: "secondary", healthy: true, text: "from-secondary"}
	f := NewFailover([]domain.Generator{g1, g2}, testLogger())

	text, err := f.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from-primary" {
		t.Fatalf("expected 'from-primary', got %q", text)
	}
	if g2.calls != 0 {
		t.Fatal("secondary should not be called when primary succeeds")
	}
}

func TestFailover_FallsBackOnError(t *testing.T) {
	g1 := &mockGenerator{name: "primary", healthy: true, err: errors.New("api error")}
	g2 := &mockGenerator{name: "secondary", healthy: true, text: "from-secondary"}
	f := NewFailover([]domain.Generator{g1, g2}, testLogger())

	text, err := f.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from-secondary" {
		t.Fatalf("expected 'from-secondary', got %q", text)
	}
}

func TestFailover_AllGeneratorsFail(t *testing.T) {
	g1 := &mockGenerator{name: "g1", healthy: true, err: errors.New("fail 1")}
	g2 := &mockGenerator{name: "g2", healthy: true, err: errors.New("fail 2")}
	f := NewFailover([]domain.Generator{g1, g2}, testLogger())

	if _, err := f.Generate(context.Background(), domain.GenerateRequest{}); err == nil {
		t.Fatal("expected error when every generator fails")
	}
}

func TestFailover_Healthy(t *testing.T) {
	g1 := &mockGenerator{name: "g1", healthy: false}
	g2 := &mockGenerator{name: "g2", healthy: true}
	f := NewFailover([]domain.Generator{g1, g2}, testLogger())

	if err := f.Healthy(context.Background()); err != nil {
		t.Fatalf("one healthy generator should make the chain healthy: %v", err)
	}

	g2.healthy = false
	if err := f.Healthy(context.Background()); err == nil {
		t.Fatal("expected unhealthy chain")
	}
}

func TestFailover_WithStaticTerminal_NeverFails(t *testing.T) {
	g1 := &mockGenerator{name: "g1", healthy: true, err: errors.New("down")}
	f := NewFailover([]domain.Generator{g1, NewStatic()}, testLogger())

	text, err := f.Generate(context.Background(), domain.GenerateRequest{Dialect: "iraqi"})
	if err != nil {
		t.Fatalf("static terminal must absorb failures: %v", err)
	}
	if text == "" {
		t.Fatal("expected a non-empty fallback reply")
	}
}
