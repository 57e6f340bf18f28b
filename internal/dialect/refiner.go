package dialect

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
)

// trailingPunct is the set of trailing punctuation stripped from a token
// before vocabulary matching.
const trailingPunct = ".,!?؛،"

// greetingProbability is the chance a refined response gets a dialect
// greeting prepended.
const greetingProbability = 0.5

// Refiner rewrites generated text toward a dialect: standard-Arabic words
// are replaced with their local equivalents, and a greeting is prepended
// with fixed probability. Refinement is best-effort: it never fails, at
// worst returning the input unchanged.
type Refiner struct {
	lex     *Lexicon
	reverse map[string]map[string]string // dialect → standard word → local word

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRefiner builds a refiner over a finalized lexicon. The rng drives
// greeting injection and may be seeded for deterministic tests; nil gets a
// time-seeded source.
func NewRefiner(lex *Lexicon, rng *rand.Rand) *Refiner {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	r := &Refiner{
		lex:     lex,
		reverse: make(map[string]map[string]string),
		rng:     rng,
	}
	r.buildReverse()
	return r
}

// buildReverse inverts each dialect's local→standard vocabulary. When two
// local words share a standard form, the lexicographically smallest local
// word wins, which fixes the substitution order.
func (r *Refiner) buildReverse() {
	for _, name := range r.lex.Names() {
		vocab := r.lex.Vocabulary(name)
		locals := make([]string, 0, len(vocab))
		for local := range vocab {
			locals = append(locals, local)
		}
		sort.Strings(locals)

		rev := make(map[string]string, len(locals))
		for _, local := range locals {
			standard := vocab[local]
			if _, taken := rev[standard]; !taken {
				rev[standard] = local
			}
		}
		r.reverse[name] = rev
	}
}

// Refine applies vocabulary substitution and probabilistic greeting
// injection. Any panic is swallowed and the original text returned: a
// refinement bug must never cost the user their response.
func (r *Refiner) Refine(text, dialect string) (out string) {
	out = text
	defer func() {
		if rec := recover(); rec != nil {
			out = text
		}
	}()

	refined := r.substitute(text, dialect)
	return r.maybeGreet(refined, dialect)
}

// substitute replaces standard-Arabic tokens with their dialect-local
// equivalents. Tokens are split on whitespace; trailing punctuation is
// stripped for matching and re-attached to the replacement (the stripped
// form is only a lookup key, never the output).
func (r *Refiner) substitute(text, dialect string) string {
	rev, ok := r.reverse[dialect]
	if !ok || len(rev) == 0 {
		return text
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text
	}

	for i, token := range tokens {
		clean := strings.TrimRight(token, trailingPunct)
		if clean == "" {
			continue
		}
		if local, found := rev[clean]; found {
			tokens[i] = local + token[len(clean):]
		}
	}
	return strings.Join(tokens, " ")
}

// maybeGreet prepends a random dialect greeting with probability 0.5.
func (r *Refiner) maybeGreet(text, dialect string) string {
	greetings := r.lex.Greetings(dialect)
	if len(greetings) == 0 {
		return text
	}

	r.mu.Lock()
	roll := r.rng.Float64()
	idx := r.rng.IntN(len(greetings))
	r.mu.Unlock()

	if roll >= greetingProbability {
		return text
	}
	return greetings[idx] + "، " + text
}
