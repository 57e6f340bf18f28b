package conversation

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager(5, nil, testLogger())

	mem := m.GetOrCreate("g1", "iraqi")
	if mem.Dialect != "iraqi" || len(mem.History) != 0 || len(mem.Participants) != 0 {
		t.Fatalf("unexpected fresh memory: %+v", mem)
	}
	if mem.LastActive.IsZero() {
		t.Fatal("last_active must be set at creation")
	}

	again := m.GetOrCreate("g1", "egyptian")
	if again != mem {
		t.Fatal("expected the same memory instance")
	}
	if again.Dialect != "iraqi" {
		t.Fatal("GetOrCreate must not overwrite an existing dialect")
	}
}

func TestManager_HistoryTruncation(t *testing.T) {
	const maxHistory = 3
	m := NewManager(maxHistory, nil, testLogger())
	mem := m.GetOrCreate("g1", "iraqi")

	for i := 0; i < 10; i++ {
		m.AppendTurn(mem, fmt.Sprintf("user %d", i), fmt.Sprintf("bot %d", i))
	}

	h := mem.HistorySnapshot()
	if len(h) != 2*maxHistory {
		t.Fatalf("expected history length %d, got %d", 2*maxHistory, len(h))
	}
	want := []string{"user 7", "bot 7", "user 8", "bot 8", "user 9", "bot 9"}
	for i, line := range want {
		if h[i] != line {
			t.Fatalf("history[%d]: expected %q, got %q", i, line, h[i])
		}
	}
}

func TestManager_SweepInactive(t *testing.T) {
	clock := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	m := NewManager(5, now, testLogger())

	stale := m.GetOrCreate("stale", "iraqi")
	stale.mu.Lock()
	stale.LastActive = clock.Add(-25 * time.Hour)
	stale.mu.Unlock()

	fresh := m.GetOrCreate("fresh", "egyptian")
	fresh.mu.Lock()
	fresh.LastActive = clock.Add(-1 * time.Hour)
	fresh.mu.Unlock()

	if removed := m.SweepInactive(24 * time.Hour); removed != 1 {
		t.Fatalf("expected 1 group removed, got %d", removed)
	}
	if _, ok := m.Stats("stale"); ok {
		t.Fatal("stale group should be gone")
	}
	if _, ok := m.Stats("fresh"); !ok {
		t.Fatal("fresh group should survive")
	}

	if removed := m.SweepInactive(24 * time.Hour); removed != 0 {
		t.Fatalf("second sweep should be a no-op, removed %d", removed)
	}
}

func TestManager_SweepDuringInFlightTurn(t *testing.T) {
	clock := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	m := NewManager(5, now, testLogger())

	mem := m.GetOrCreate("g1", "iraqi")
	mem.RecordParticipant("u1")

	// A slow generator call keeps the turn in flight past the threshold.
	clock = clock.Add(25 * time.Hour)
	if again := m.GetOrCreate("g1", "iraqi"); again != mem {
		t.Fatal("expected the existing memory instance")
	}
	if removed := m.SweepInactive(24 * time.Hour); removed != 1 {
		t.Fatalf("expected 1 group removed, got %d", removed)
	}

	m.AppendTurn(mem, "user line", "bot line")

	stats, ok := m.Stats("g1")
	if !ok {
		t.Fatal("group must be reachable after its own turn completed")
	}
	if stats.MessageCount != 2 || stats.UserCount != 1 {
		t.Fatalf("unexpected stats after reinstatement: %+v", stats)
	}
	if !stats.LastActive.Equal(clock) {
		t.Fatalf("last_active must reflect the completed turn, got %v", stats.LastActive)
	}

	if removed := m.SweepInactive(24 * time.Hour); removed != 0 {
		t.Fatalf("reinstated group is active again, removed %d", removed)
	}
}

func TestManager_RecordParticipant(t *testing.T) {
	m := NewManager(5, nil, testLogger())
	mem := m.GetOrCreate("g1", "iraqi")

	mem.RecordParticipant("u1")
	mem.RecordParticipant("u2")
	mem.RecordParticipant("u1")
	mem.RecordParticipant("")

	stats, ok := m.Stats("g1")
	if !ok {
		t.Fatal("expected stats for g1")
	}
	if stats.UserCount != 2 {
		t.Fatalf("expected 2 participants, got %d", stats.UserCount)
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(5, nil, testLogger())

	if _, ok := m.Stats("missing"); ok {
		t.Fatal("unknown group must report ok=false")
	}

	mem := m.GetOrCreate("g1", "khaleeji")
	mem.RecordParticipant("u1")
	m.AppendTurn(mem, "user line", "bot line")

	stats, ok := m.Stats("g1")
	if !ok {
		t.Fatal("expected stats")
	}
	if stats.Dialect != "khaleeji" || stats.MessageCount != 2 || stats.UserCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestManager_ConcurrentTurnsSameGroup(t *testing.T) {
	m := NewManager(50, nil, testLogger())
	mem := m.GetOrCreate("g1", "iraqi")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AppendTurn(mem, fmt.Sprintf("user %d", i), fmt.Sprintf("bot %d", i))
		}(i)
	}
	wg.Wait()

	h := mem.HistorySnapshot()
	if len(h) != 40 {
		t.Fatalf("expected 40 lines, got %d", len(h))
	}
	// Each exchange's two lines must be adjacent: turns never interleave.
	for i := 0; i < len(h); i += 2 {
		wantBot := "bot" + h[i][len("user"):]
		if h[i+1] != wantBot {
			t.Fatalf("interleaved turn at %d: %q then %q", i, h[i], h[i+1])
		}
	}
}
