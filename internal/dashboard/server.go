// Package dashboard serves the read-only admin API: aggregate interaction
// stats, per-dialect learning progress, group summaries, and metrics.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dialectbot/internal/domain"
	"dialectbot/internal/metrics"
)

// Orchestrator is the slice of the conversation pipeline the dashboard
// reads from.
type Orchestrator interface {
	GroupStats(groupID string) (domain.GroupStats, bool)
	GroupIDs() []string
	DialectProgress(dialect string) (patterns, entries int)
	SweepInactive(threshold time.Duration) int
}

// Server is the admin HTTP server.
type Server struct {
	host     string
	port     int
	orch     Orchestrator
	store    domain.InteractionStore
	dialects []string
	col      *metrics.Collector
	logger   *slog.Logger
	server   *http.Server

	inactiveThreshold time.Duration
}

type ServerConfig struct {
	Host string
	Port int
	Orch Orchestrator
	// Store is optional; stats endpoints degrade gracefully without it.
	Store    domain.InteractionStore
	Dialects []string
	Metrics  *metrics.Collector
	Logger   *slog.Logger

	InactiveThreshold time.Duration
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default
	}
	if cfg.InactiveThreshold <= 0 {
		cfg.InactiveThreshold = 24 * time.Hour
	}
	return &Server{
		host:              cfg.Host,
		port:              cfg.Port,
		orch:              cfg.Orch,
		store:             cfg.Store,
		dialects:          cfg.Dialects,
		col:               cfg.Metrics,
		logger:            cfg.Logger,
		inactiveThreshold: cfg.InactiveThreshold,
	}
}

// Handler builds the route table. Split from Start so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dialect_progress/{dialect}", s.handleDialectProgress)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGroup)
	mux.HandleFunc("POST /api/sweep", s.handleSweep)
	mux.HandleFunc("GET /metrics", s.col.Handler())
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Dashboard started", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// dashboardView is the GET /dashboard response body.
type dashboardView struct {
	Totals   *domain.Totals       `json:"totals,omitempty"`
	Dialects []domain.DialectStat `json:"dialects,omitempty"`
	Learning []learningProgress   `json:"learning"`
	Groups   []string             `json:"groups"`
}

type learningProgress struct {
	Dialect  string `json:"dialect"`
	Patterns int    `json:"patterns"`
	Entries  int    `json:"entries"`
}

func (s *Server) handleDashboard(rw http.ResponseWriter, r *http.Request) {
	view := dashboardView{
		Learning: make([]learningProgress, 0, len(s.dialects)),
		Groups:   s.orch.GroupIDs(),
	}

	for _, d := range s.dialects {
		patterns, entries := s.orch.DialectProgress(d)
		view.Learning = append(view.Learning, learningProgress{
			Dialect:  d,
			Patterns: patterns,
			Entries:  entries,
		})
	}

	if s.store != nil {
		if totals, err := s.store.Totals(r.Context()); err == nil {
			view.Totals = &totals
		} else {
			s.logger.Warn("Totals query failed", "error", err)
		}
		if stats, err := s.store.DialectStats(r.Context()); err == nil {
			view.Dialects = stats
		} else {
			s.logger.Warn("Dialect stats query failed", "error", err)
		}
	}

	writeJSON(rw, http.StatusOK, view)
}

func (s *Server) handleDialectProgress(rw http.ResponseWriter, r *http.Request) {
	dialect := r.PathValue("dialect")
	patterns, entries := s.orch.DialectProgress(dialect)
	writeJSON(rw, http.StatusOK, learningProgress{
		Dialect:  dialect,
		Patterns: patterns,
		Entries:  entries,
	})
}

func (s *Server) handleGroup(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stats, ok := s.orch.GroupStats(id)
	if !ok {
		writeJSON(rw, http.StatusNotFound, map[string]string{"error": "unknown group"})
		return
	}
	writeJSON(rw, http.StatusOK, stats)
}

func (s *Server) handleSweep(rw http.ResponseWriter, r *http.Request) {
	removed := s.orch.SweepInactive(s.inactiveThreshold)
	writeJSON(rw, http.StatusOK, map[string]int{"removed": removed})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
