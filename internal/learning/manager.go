package learning

import (
	"log/slog"
	"sync"
)

// Manager hands out one Store per dialect, created lazily on first use so
// only dialects that actually see traffic get a file on disk.
type Manager struct {
	dataDir string
	enabled bool
	logger  *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(dataDir string, enabled bool, logger *slog.Logger) *Manager {
	return &Manager{
		dataDir: dataDir,
		enabled: enabled,
		logger:  logger,
		stores:  make(map[string]*Store),
	}
}

// Learn routes an interaction to the dialect's store. Disabled learning is
// a silent no-op so the orchestrator needs no separate code path.
func (m *Manager) Learn(dialect, userInput, botResponse string, successScore float64) error {
	if !m.enabled {
		return nil
	}
	store, err := m.store(dialect)
	if err != nil {
		return err
	}
	return store.Learn(userInput, botResponse, successScore)
}

// Progress reports the accumulated pattern and entry counts for a dialect.
// A dialect with no store yet reports zeros.
func (m *Manager) Progress(dialect string) (patterns, entries int) {
	m.mu.Lock()
	store, ok := m.stores[dialect]
	m.mu.Unlock()
	if !ok {
		return 0, 0
	}
	return store.Counts()
}

// Snapshot returns copies of a dialect's learned data, or nils when the
// dialect has no store yet.
func (m *Manager) Snapshot(dialect string) ([]string, []PatternEntry) {
	m.mu.Lock()
	store, ok := m.stores[dialect]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return store.Snapshot()
}

func (m *Manager) store(dialect string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[dialect]; ok {
		return store, nil
	}
	store, err := NewStore(dialect, m.dataDir, m.logger)
	if err != nil {
		return nil, err
	}
	m.stores[dialect] = store
	return store, nil
}
