// Package conversation tracks per-group state: detected dialect, bounded
// turn history, participants, and last activity. Groups are created lazily
// and evicted only by the inactivity sweep.
package conversation

import (
	"log/slog"
	"sync"
	"time"

	"dialectbot/internal/domain"
)

// GroupMemory is the mutable state of one conversation group. All mutation
// goes through its mutex so concurrent turns for the same group never
// interleave their history writes.
type GroupMemory struct {
	mu sync.Mutex

	GroupID      string
	Dialect      string
	History      []string
	Participants map[string]struct{}
	LastActive   time.Time
}

// Manager owns the group-id to memory map. The outer RWMutex guards the
// map itself; each memory's own mutex guards its fields. Sweep takes the
// outer lock exclusively, so it never races a group being updated.
type Manager struct {
	maxHistory int
	now        func() time.Time
	logger     *slog.Logger

	mu     sync.RWMutex
	groups map[string]*GroupMemory
}

// NewManager builds an empty manager. maxHistory is the number of exchanges
// kept per group (history holds twice that in lines). The clock is injected
// for sweep tests; nil means time.Now.
func NewManager(maxHistory int, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		maxHistory: maxHistory,
		now:        now,
		logger:     logger,
		groups:     make(map[string]*GroupMemory),
	}
}

// GetOrCreate returns the group's memory, creating it with the detected
// dialect on first sight. An existing memory is returned as is; the caller
// overwrites the dialect explicitly each turn via SetDialect.
func (m *Manager) GetOrCreate(groupID, dialect string) *GroupMemory {
	m.mu.RLock()
	mem, ok := m.groups[groupID]
	m.mu.RUnlock()
	if ok {
		return mem
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.groups[groupID]; ok {
		return mem
	}
	mem = &GroupMemory{
		GroupID:      groupID,
		Dialect:      dialect,
		Participants: make(map[string]struct{}),
		LastActive:   m.now(),
	}
	m.groups[groupID] = mem
	m.logger.Debug("Conversation group created", "group_id", groupID, "dialect", dialect)
	return mem
}

// SetDialect overwrites the group's dialect with the freshly detected one.
func (mem *GroupMemory) SetDialect(dialect string) {
	mem.mu.Lock()
	mem.Dialect = dialect
	mem.mu.Unlock()
}

// AppendTurn records one exchange: both lines are appended in a single
// critical section, then the history is truncated from the front to at most
// 2 x maxHistory lines. The turn lands on the group currently in the map.
// A generator call can outlast the inactivity threshold, so the sweep may
// have removed the group while its turn was in flight; the group is
// reinstated here rather than writing the finished turn to an orphaned
// memory.
func (m *Manager) AppendTurn(mem *GroupMemory, userLine, botLine string) {
	limit := 2 * m.maxHistory

	m.mu.Lock()
	defer m.mu.Unlock()

	live, ok := m.groups[mem.GroupID]
	if !ok {
		m.groups[mem.GroupID] = mem
		live = mem
		m.logger.Debug("Swept group reinstated by in-flight turn", "group_id", mem.GroupID)
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	live.History = append(live.History, userLine, botLine)
	if len(live.History) > limit {
		live.History = live.History[len(live.History)-limit:]
	}
	live.LastActive = m.now()
}

// RecordParticipant adds a user to the group's participant set. Empty ids
// are ignored.
func (mem *GroupMemory) RecordParticipant(userID string) {
	if userID == "" {
		return
	}
	mem.mu.Lock()
	mem.Participants[userID] = struct{}{}
	mem.mu.Unlock()
}

// HistorySnapshot returns a copy of the group's history lines.
func (mem *GroupMemory) HistorySnapshot() []string {
	mem.mu.Lock()
	defer mem.mu.Unlock()
	out := make([]string, len(mem.History))
	copy(out, mem.History)
	return out
}

// SweepInactive removes every group idle longer than threshold and returns
// how many were removed. It holds the map lock for the whole pass, so no
// group is deleted mid-update or updated mid-delete.
func (m *Manager) SweepInactive(threshold time.Duration) int {
	cutoff := m.now().Add(-threshold)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, mem := range m.groups {
		mem.mu.Lock()
		stale := mem.LastActive.Before(cutoff)
		mem.mu.Unlock()
		if stale {
			delete(m.groups, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("Inactive groups swept", "removed", removed, "remaining", len(m.groups))
	}
	return removed
}

// Stats returns a read-only summary for one group, with ok false when the
// group is unknown.
func (m *Manager) Stats(groupID string) (domain.GroupStats, bool) {
	m.mu.RLock()
	mem, ok := m.groups[groupID]
	m.mu.RUnlock()
	if !ok {
		return domain.GroupStats{}, false
	}

	mem.mu.Lock()
	defer mem.mu.Unlock()
	return domain.GroupStats{
		GroupID:      mem.GroupID,
		Dialect:      mem.Dialect,
		MessageCount: len(mem.History),
		UserCount:    len(mem.Participants),
		LastActive:   mem.LastActive,
	}, true
}

// GroupCount returns the number of active groups.
func (m *Manager) GroupCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups)
}

// GroupIDs returns the ids of all active groups.
func (m *Manager) GroupIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	return ids
}
