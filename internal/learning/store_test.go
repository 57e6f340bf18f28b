package learning

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExtractPatterns(t *testing.T) {
	got := ExtractPatterns("اكو خبز في البيت")
	want := []string{
		"اكو", "خبز", "في", "البيت",
		"اكو خبز", "خبز في", "في البيت",
		"اكو خبز في", "خبز في البيت",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtractPatterns_ShortInput(t *testing.T) {
	if got := ExtractPatterns("هلا"); !reflect.DeepEqual(got, []string{"هلا"}) {
		t.Fatalf("single word: got %v", got)
	}
	if got := ExtractPatterns("   "); got != nil {
		t.Fatalf("whitespace-only input should yield nil, got %v", got)
	}
}

func TestStore_LearnBelowThreshold_FileUntouched(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore("iraqi", dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Learn("شلونك", "هلا بيك", 0.9); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Learn("اكو شي", "اي اكو", 0.69); err != nil {
		t.Fatal(err)
	}
	if err := s.Learn("اكو شي", "اي اكو", 0.7); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("at-or-below-threshold learn must leave the file byte-identical")
	}
	if patterns, entries := s.Counts(); patterns != 1 || entries != 1 {
		t.Fatalf("expected counts unchanged (1,1), got (%d,%d)", patterns, entries)
	}
}

func TestStore_LearnAboveThreshold_Grows(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore("egyptian", dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Learn("عايز اعرف الطريق", "من هنا", 0.71); err != nil {
		t.Fatal(err)
	}

	patterns, entries := s.Snapshot()
	if len(patterns) != 6 { // 3 unigrams + 2 bigrams + 1 trigram
		t.Fatalf("expected 6 patterns, got %d: %v", len(patterns), patterns)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Pattern != "عايز" || e.Response != "من هنا" || e.Score != 0.71 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore("khaleeji", dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Learn("وايد زين", "الحمد لله", 0.8); err != nil {
		t.Fatal(err)
	}
	if err := s.Learn("شحوالك اليوم", "تمام", 0.95); err != nil {
		t.Fatal(err)
	}
	wantPatterns, wantEntries := s.Snapshot()

	reloaded, err := NewStore("khaleeji", dir, testLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	gotPatterns, gotEntries := reloaded.Snapshot()

	if !reflect.DeepEqual(gotPatterns, wantPatterns) {
		t.Fatalf("patterns differ after reload:\n%v\n%v", gotPatterns, wantPatterns)
	}
	if !reflect.DeepEqual(gotEntries, wantEntries) {
		t.Fatalf("entries differ after reload:\n%v\n%v", gotEntries, wantEntries)
	}
}

func TestStore_DialectsDoNotShareFiles(t *testing.T) {
	dir := t.TempDir()

	a, err := NewStore("iraqi", dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Learn("شلونك", "هلا", 0.8); err != nil {
		t.Fatal(err)
	}

	b, err := NewStore("egyptian", dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if patterns, entries := b.Counts(); patterns != 0 || entries != 0 {
		t.Fatalf("fresh dialect must start empty, got (%d,%d)", patterns, entries)
	}
}

func TestStore_EmptyInput_FallbackPattern(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore("iraqi", dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Learn("", "رد", 0.8); err != nil {
		t.Fatal(err)
	}

	patterns, entries := s.Snapshot()
	if len(patterns) != 0 {
		t.Fatalf("empty input must extract no patterns, got %v", patterns)
	}
	if len(entries) != 1 || entries[0].Pattern != "" {
		t.Fatalf("expected one entry with empty pattern, got %+v", entries)
	}
}

func TestStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "learned_iraqi.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore("iraqi", dir, testLogger()); err == nil {
		t.Fatal("expected error for corrupt pattern file")
	}
}

func TestManager_LazyStoresAndProgress(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, true, testLogger())

	if p, e := m.Progress("iraqi"); p != 0 || e != 0 {
		t.Fatalf("untouched dialect should report zeros, got (%d,%d)", p, e)
	}

	if err := m.Learn("iraqi", "شلون الجو", "زين", 0.8); err != nil {
		t.Fatal(err)
	}
	if p, e := m.Progress("iraqi"); p != 3 || e != 1 {
		t.Fatalf("expected (3,1), got (%d,%d)", p, e)
	}

	if _, err := os.Stat(filepath.Join(dir, "learned_iraqi.json")); err != nil {
		t.Fatalf("expected pattern file on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "learned_egyptian.json")); !os.IsNotExist(err) {
		t.Fatal("dialect without traffic must not get a file")
	}
}

func TestManager_Disabled_NoOp(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, false, testLogger())

	if err := m.Learn("iraqi", "شلونك", "هلا", 0.9); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("disabled learning must not write files, found %d", len(entries))
	}
}
