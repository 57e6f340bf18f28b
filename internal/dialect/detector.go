package dialect

import "strings"

// Detector scores text against each dialect's vocabulary and picks the best
// match. It is a substring-count heuristic, not a classifier: there is no
// confidence threshold, and an all-zero score still returns a dialect.
type Detector struct {
	lex *Lexicon
}

func NewDetector(lex *Lexicon) *Detector {
	return &Detector{lex: lex}
}

// Detect returns the dialect whose local vocabulary words occur most often
// in text (substring match, one point per vocabulary key). Ties resolve to
// the earliest dialect in the lexicon's iteration order; since the default
// dialect sits first and scores zero, an all-zero result is the default.
// Deterministic for identical text and lexicon.
func (d *Detector) Detect(text string) string {
	best := ""
	bestScore := -1
	for _, name := range d.lex.Names() {
		score := 0
		for word := range d.lex.Vocabulary(name) {
			if strings.Contains(text, word) {
				score++
			}
		}
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	return best
}

// Score returns the raw per-dialect counts behind Detect's decision, keyed
// by dialect name. Detect is the operational entry point; Score exposes the
// scoring for inspection.
func (d *Detector) Score(text string) map[string]int {
	scores := make(map[string]int, len(d.lex.Names()))
	for _, name := range d.lex.Names() {
		score := 0
		for word := range d.lex.Vocabulary(name) {
			if strings.Contains(text, word) {
				score++
			}
		}
		scores[name] = score
	}
	return scores
}
