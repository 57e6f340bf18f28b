package generator

import (
	"context"
	"testing"

	"dialectbot/internal/domain"
)

func TestStatic_PerDialectReplies(t *testing.T) {
	s := NewStatic()

	for _, dialect := range []string{"iraqi", "khaleeji", "egyptian", "standard_arabic", "unknown", ""} {
		text, err := s.Generate(context.Background(), domain.GenerateRequest{Dialect: dialect})
		if err != nil {
			t.Fatalf("dialect %q: static generator must not fail: %v", dialect, err)
		}
		if text == "" {
			t.Fatalf("dialect %q: expected a non-empty reply", dialect)
		}
	}
}

func TestStatic_UnknownDialect_UsesDefault(t *testing.T) {
	s := NewStatic()

	def, _ := s.Generate(context.Background(), domain.GenerateRequest{})
	got, _ := s.Generate(context.Background(), domain.GenerateRequest{Dialect: "martian"})
	if got != def {
		t.Fatalf("unknown dialect should get the default reply, got %q", got)
	}
}

func TestStatic_AlwaysHealthy(t *testing.T) {
	if err := NewStatic().Healthy(context.Background()); err != nil {
		t.Fatalf("static generator must always be healthy: %v", err)
	}
}
