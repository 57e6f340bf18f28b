// Package learning accumulates success-tagged n-gram patterns per dialect
// and persists them across restarts.
package learning

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SuccessThreshold is the minimum score (exclusive) an interaction needs
// before it is recorded. At or below it, Learn is a no-op.
const SuccessThreshold = 0.7

// maxNGramLen bounds the extracted n-gram lengths to 1..3 words.
const maxNGramLen = 3

// fallbackPatternRunes caps the representative pattern taken from the raw
// input when n-gram extraction yields nothing.
const fallbackPatternRunes = 50

// PatternEntry records one learned interaction: the representative pattern,
// the response that worked, and the score that qualified it.
type PatternEntry struct {
	Pattern  string  `json:"pattern"`
	Response string  `json:"response"`
	Score    float64 `json:"score"`
}

// patternSet is the on-disk shape of a dialect's learned data.
type patternSet struct {
	Patterns []string       `json:"patterns"`
	Entries  []PatternEntry `json:"entries"`
}

// Store is the durable pattern accumulator for a single dialect. All
// mutation and persistence for the dialect goes through its mutex, so
// concurrent Learn calls never interleave file writes.
type Store struct {
	dialect string
	path    string
	logger  *slog.Logger

	mu  sync.Mutex
	set patternSet
}

// NewStore loads the dialect's persisted pattern set from dataDir, starting
// empty if no file exists yet. A corrupt file is an error: silently starting
// over would discard learned data.
func NewStore(dialect, dataDir string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		dialect: dialect,
		path:    filepath.Join(dataDir, "learned_"+dialect+".json"),
		logger:  logger,
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read pattern file %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.set); err != nil {
		return nil, fmt.Errorf("cannot parse pattern file %s: %w", s.path, err)
	}
	return s, nil
}

// Learn records a qualifying interaction. Scores at or below the threshold
// leave both memory and disk untouched. Above it, every extracted n-gram is
// appended to the pattern list, one entry is appended, and the whole set is
// persisted before returning.
func (s *Store) Learn(userInput, botResponse string, successScore float64) error {
	if successScore <= SuccessThreshold {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patterns := ExtractPatterns(userInput)
	s.set.Patterns = append(s.set.Patterns, patterns...)

	representative := firstOrTruncated(patterns, userInput)
	s.set.Entries = append(s.set.Entries, PatternEntry{
		Pattern:  representative,
		Response: botResponse,
		Score:    successScore,
	})

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persist patterns for %s: %w", s.dialect, err)
	}

	s.logger.Debug("Interaction learned",
		"dialect", s.dialect,
		"patterns", len(patterns),
		"total_patterns", len(s.set.Patterns),
		"total_entries", len(s.set.Entries))
	return nil
}

// persistLocked writes the full set to a temp file in the target directory
// and renames it over the previous file. A failed write leaves the old file
// intact. Caller holds s.mu.
func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.set, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "learned_*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Snapshot returns copies of the current patterns and entries.
func (s *Store) Snapshot() ([]string, []PatternEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patterns := make([]string, len(s.set.Patterns))
	copy(patterns, s.set.Patterns)
	entries := make([]PatternEntry, len(s.set.Entries))
	copy(entries, s.set.Entries)
	return patterns, entries
}

// Counts reports the accumulated sizes without copying the data.
func (s *Store) Counts() (patterns, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set.Patterns), len(s.set.Entries)
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// ExtractPatterns produces every contiguous word n-gram of length 1 to 3
// from text, shorter when the text has fewer words, in left-to-right order
// grouped by n-gram length. Whitespace tokenization, no normalization.
func ExtractPatterns(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var patterns []string
	maxN := min(maxNGramLen, len(words))
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(words); i++ {
			patterns = append(patterns, strings.Join(words[i:i+n], " "))
		}
	}
	return patterns
}

// firstOrTruncated picks the representative pattern for an entry: the first
// extracted n-gram, or the leading runes of the raw input when extraction
// found nothing.
func firstOrTruncated(patterns []string, input string) string {
	if len(patterns) > 0 {
		return patterns[0]
	}
	runes := []rune(input)
	if len(runes) > fallbackPatternRunes {
		return string(runes[:fallbackPatternRunes])
	}
	return input
}
