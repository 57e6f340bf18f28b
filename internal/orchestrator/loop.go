package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"dialectbot/internal/domain"
)

const defaultConcurrency = 3

// Loop consumes inbound messages from the bus, runs them through the
// orchestrator with bounded concurrency, and routes replies back out.
// Per-group ordering is handled inside the conversation manager, so two
// in-flight messages for the same group cannot corrupt its history.
type Loop struct {
	orch        *Orchestrator
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
}

type LoopConfig struct {
	Orchestrator *Orchestrator
	Bus          domain.MessageBus
	Logger       *slog.Logger
	Concurrency  int // max parallel messages (default 3)
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loop{
		orch:        cfg.Orchestrator,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound messages until the context is cancelled or the bus
// closes.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("Message loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Message loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("Inbound channel closed, message loop stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				reply := l.orch.ProcessMessage(ctx, m)
				l.bus.SendOutbound(domain.OutboundMessage{
					Channel: m.Channel,
					GroupID: m.GroupID,
					Content: reply,
				})
			}(msg)
		}
	}
}

// ProcessDirect handles a message synchronously and returns the reply.
// Used by the CLI channel and tests that need a blocking answer.
func (l *Loop) ProcessDirect(ctx context.Context, content, channel, groupID, senderID string) string {
	return l.orch.ProcessMessage(ctx, domain.InboundMessage{
		Channel:   channel,
		GroupID:   groupID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: time.Now(),
	})
}
