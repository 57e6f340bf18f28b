// Package orchestrator ties detection, memory, generation, refinement, and
// learning together: one inbound message in, one response string out.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"dialectbot/internal/bus"
	"dialectbot/internal/conversation"
	"dialectbot/internal/dialect"
	"dialectbot/internal/domain"
	"dialectbot/internal/learning"
	"dialectbot/internal/metrics"
)

// successScore is the fixed learning signal attached to every completed
// turn. No real feedback measurement exists; deriving this from user
// reactions is an open followup.
const successScore = 0.8

// ApologyReply is the dialect-agnostic response returned when message
// processing fails in a way the pipeline cannot absorb. Users always get
// text back, never an error.
const ApologyReply = "عذراً، حدث خطأ بسيط، حاول مرة أخرى"

// Orchestrator owns all conversation state. Collaborators are injected;
// the interaction store and event bus may be nil.
type Orchestrator struct {
	detector *dialect.Detector
	refiner  *dialect.Refiner
	memory   *conversation.Manager
	learner  *learning.Manager
	chain    domain.Generator
	fallback domain.Generator
	store    domain.InteractionStore
	events   *bus.EventBus
	col      *metrics.Collector
	logger   *slog.Logger

	genTimeout  time.Duration
	maxTokens   int
	temperature float64
}

type Config struct {
	Detector *dialect.Detector
	Refiner  *dialect.Refiner
	Memory   *conversation.Manager
	Learner  *learning.Manager
	// Chain is the generator the orchestrator calls; normally a failover
	// chain ending in the static fallback.
	Chain domain.Generator
	// Fallback answers when even the chain errors. Must never fail itself.
	Fallback domain.Generator
	Store    domain.InteractionStore
	Events   *bus.EventBus
	Metrics  *metrics.Collector
	Logger   *slog.Logger

	GeneratorTimeout time.Duration
	MaxTokens        int
	Temperature      float64
}

func New(cfg Config) *Orchestrator {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 60 * time.Second
	}
	return &Orchestrator{
		detector:    cfg.Detector,
		refiner:     cfg.Refiner,
		memory:      cfg.Memory,
		learner:     cfg.Learner,
		chain:       cfg.Chain,
		fallback:    cfg.Fallback,
		store:       cfg.Store,
		events:      cfg.Events,
		col:         cfg.Metrics,
		logger:      cfg.Logger,
		genTimeout:  cfg.GeneratorTimeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// ProcessMessage runs the full pipeline for one inbound message and returns
// the text to send back. It never returns an error: any failure inside the
// pipeline degrades to a fallback or, at worst, the fixed apology.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg domain.InboundMessage) (reply string) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("Message processing panicked",
				"group_id", msg.GroupID, "panic", rec)
			reply = ApologyReply
		}
		o.col.MessagesProcessed(msg.Channel).Inc()
		o.col.ResponseDuration().Observe(time.Since(started).Seconds())
	}()

	detected := o.detector.Detect(msg.Content)
	o.col.DialectDetections(detected).Inc()
	o.emit(bus.Event{Type: bus.EventDialectDetected, Source: "orchestrator", Payload: map[string]any{
		"group_id": msg.GroupID,
		"dialect":  detected,
	}})

	mem := o.memory.GetOrCreate(msg.GroupID, detected)
	mem.SetDialect(detected)
	mem.RecordParticipant(msg.SenderID)

	raw := o.generate(ctx, msg.Content, detected, mem.HistorySnapshot())
	refined := o.refiner.Refine(raw, detected)

	o.memory.AppendTurn(mem, UserTurnPrefix+msg.Content, BotTurnPrefix+refined)
	o.col.ActiveGroups().Set(int64(o.memory.GroupCount()))

	if err := o.learner.Learn(detected, msg.Content, refined, successScore); err != nil {
		// Learning is bookkeeping; a failed write must not cost the turn.
		o.logger.Warn("Pattern learning failed", "dialect", detected, "error", err)
	} else {
		o.col.PatternsLearned(detected).Inc()
		o.emit(bus.Event{Type: bus.EventPatternLearned, Source: "orchestrator", Payload: map[string]any{
			"dialect": detected,
		}})
	}

	o.record(ctx, msg, detected, time.Since(started))

	o.emit(bus.Event{Type: bus.EventMessageProcessed, Source: "orchestrator", Payload: map[string]any{
		"group_id": msg.GroupID,
		"dialect":  detected,
		"channel":  msg.Channel,
	}})

	o.logger.Info("Message processed",
		"group_id", msg.GroupID,
		"dialect", detected,
		"duration", time.Since(started))
	return refined
}

// generate calls the generator chain under a timeout and extracts the reply.
// A chain failure degrades to the static fallback instead of surfacing.
func (o *Orchestrator) generate(ctx context.Context, text, detected string, history []string) string {
	prompt := BuildPrompt(text, detected, history)
	req := domain.GenerateRequest{
		Prompt:      prompt,
		Dialect:     detected,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}

	genCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
	defer cancel()

	raw, err := o.chain.Generate(genCtx, req)
	if err != nil {
		o.logger.Warn("Generator chain failed, using fallback", "error", err)
		o.col.GeneratorFailures().Inc()
		o.emit(bus.Event{Type: bus.EventGeneratorFailed, Source: "orchestrator", Payload: map[string]any{
			"error": err.Error(),
		}})
		raw, _ = o.fallback.Generate(context.WithoutCancel(ctx), req)
		return raw
	}
	return ExtractReply(raw, prompt)
}

// record persists the interaction for the dashboard when a store is wired.
func (o *Orchestrator) record(ctx context.Context, msg domain.InboundMessage, detected string, took time.Duration) {
	if o.store == nil {
		return
	}
	err := o.store.RecordInteraction(ctx, domain.Interaction{
		GroupID:    msg.GroupID,
		UserID:     msg.SenderID,
		Dialect:    detected,
		MessageLen: len([]rune(msg.Content)),
		ResponseMs: took.Milliseconds(),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		o.logger.Warn("Interaction record failed", "group_id", msg.GroupID, "error", err)
	}
}

func (o *Orchestrator) emit(e bus.Event) {
	if o.events != nil {
		o.events.Emit(e)
	}
}

// GroupStats returns the read-only summary for one group.
func (o *Orchestrator) GroupStats(groupID string) (domain.GroupStats, bool) {
	return o.memory.Stats(groupID)
}

// GroupIDs lists the active conversation groups.
func (o *Orchestrator) GroupIDs() []string {
	return o.memory.GroupIDs()
}

// DialectProgress reports the learned pattern and entry counts per dialect.
func (o *Orchestrator) DialectProgress(dialect string) (patterns, entries int) {
	return o.learner.Progress(dialect)
}

// SweepInactive evicts groups idle longer than threshold and returns the
// number removed. Idempotent; safe to call concurrently with processing.
func (o *Orchestrator) SweepInactive(threshold time.Duration) int {
	removed := o.memory.SweepInactive(threshold)
	o.col.ActiveGroups().Set(int64(o.memory.GroupCount()))
	if removed > 0 {
		o.emit(bus.Event{Type: bus.EventGroupSwept, Source: "orchestrator", Payload: map[string]any{
			"removed": removed,
		}})
	}
	return removed
}
