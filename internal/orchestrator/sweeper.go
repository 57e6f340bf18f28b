package orchestrator

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts inactive conversation groups on a fixed interval.
type Sweeper struct {
	orch      *Orchestrator
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
}

func NewSweeper(orch *Orchestrator, interval, threshold time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		orch:      orch,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Run sweeps until the context is cancelled. Call in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Group sweeper started",
		"interval", s.interval, "threshold", s.threshold)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Group sweeper stopping")
			return
		case <-ticker.C:
			if removed := s.orch.SweepInactive(s.threshold); removed > 0 {
				s.logger.Info("Sweep removed inactive groups", "removed", removed)
			}
		}
	}
}
