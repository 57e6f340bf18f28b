package generator

import (
	"context"

	"dialectbot/internal/domain"
)

// staticFallbacks holds one canned reply per dialect, used when every real
// backend is down. Keyed by dialect name; the empty key is the default.
var staticFallbacks = map[string]string{
	"iraqi":    "هلا، ما گدرت أجاوبك هسه، جرب مرة ثانية",
	"khaleeji": "هلا والله، ما قدرت أرد عليك الحين، حاول مرة ثانية",
	"egyptian": "معلش، مش قادر أرد دلوقتي، جرب تاني",
	"":         "عذراً، لا أستطيع الإجابة الآن، حاول مرة أخرى",
}

// Static is the terminal generator in every failover chain: it answers from
// a fixed per-dialect table and never returns an error.
type Static struct{}

func NewStatic() *Static { return &Static{} }

func (s *Static) Name() string { return "static" }

func (s *Static) Healthy(ctx context.Context) error { return nil }

func (s *Static) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if reply, ok := staticFallbacks[req.Dialect]; ok {
		return reply, nil
	}
	return staticFallbacks[""], nil
}
