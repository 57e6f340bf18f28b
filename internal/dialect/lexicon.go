// Package dialect holds the static per-dialect lexicon and the two text
// operations built on it: dialect detection and response refinement.
package dialect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dialectbot/internal/domain"
)

// DefaultDialect is the Modern Standard Arabic fallback profile. It carries
// greetings but an empty vocabulary, so it never outscores a real dialect
// and wins only when every dialect scores zero.
const DefaultDialect = "standard_arabic"

// Lexicon is the read-only set of dialect profiles. The iteration order is
// fixed at construction: the default dialect first, then built-ins in
// declaration order, then file-loaded dialects in file order. Detection
// tie-breaks depend on this order, so it must never change at runtime.
type Lexicon struct {
	profiles map[string]domain.DialectProfile
	order    []string
}

// NewLexicon builds the lexicon with the built-in profiles. Call LoadFile
// before sharing the lexicon across goroutines; it is read-only afterwards.
func NewLexicon() *Lexicon {
	l := &Lexicon{profiles: make(map[string]domain.DialectProfile)}
	for _, p := range builtinProfiles() {
		l.add(p)
	}
	return l
}

func builtinProfiles() []domain.DialectProfile {
	return []domain.DialectProfile{
		{
			Name:       DefaultDialect,
			Greetings:  []string{"السلام عليكم", "أهلاً وسهلاً"},
			Vocabulary: map[string]string{},
		},
		{
			Name:      "iraqi",
			Greetings: []string{"هلا", "شلونك", "ياهلا"},
			Vocabulary: map[string]string{
				"اكو":   "يوجد",
				"شني":   "ماذا",
				"شلون":  "كيف",
				"خل":    "دع",
				"هسه":   "الآن",
				"هواية": "كثيرا",
			},
			Templates: []domain.SentenceTemplate{
				{Pattern: "شلون {}؟", Meaning: "كيف {}؟"},
			},
		},
		{
			Name:      "khaleeji",
			Greetings: []string{"هلا والله", "شحوالك"},
			Vocabulary: map[string]string{
				"اشوفك": "أراك",
				"ماجر":  "فقط",
				"عسب":   "لأن",
				"شدخل":  "ما علاقة",
				"وايد":  "كثيرا",
				"الحين": "الآن",
			},
		},
		{
			Name:      "egyptian",
			Greetings: []string{"ازيك", "اهلا"},
			Vocabulary: map[string]string{
				"يعني ايه": "ماذا يعني",
				"عايز":     "أريد",
				"تمام":     "حسنا",
				"ازاي":     "كيف",
				"دلوقتي":   "الآن",
				"فين":      "أين",
			},
		},
	}
}

func (l *Lexicon) add(p domain.DialectProfile) {
	if p.Vocabulary == nil {
		p.Vocabulary = map[string]string{}
	}
	if _, exists := l.profiles[p.Name]; !exists {
		l.order = append(l.order, p.Name)
	}
	l.profiles[p.Name] = p
}

// lexiconFile is the YAML shape of a custom dialect file.
type lexiconFile struct {
	Dialects []domain.DialectProfile `yaml:"dialects"`
}

// LoadFile merges dialect profiles from a YAML file over the built-ins.
// A profile whose name matches an existing dialect replaces it in place
// (keeping its position in the iteration order); new dialects are appended
// in file order.
func (l *Lexicon) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read lexicon file %s: %w", path, err)
	}

	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("cannot parse lexicon file %s: %w", path, err)
	}

	for _, p := range file.Dialects {
		if p.Name == "" {
			return fmt.Errorf("lexicon file %s: dialect with empty name", path)
		}
		l.add(p)
	}
	return nil
}

// Profile returns the profile for a dialect. Unknown names yield an empty
// profile rather than an error.
func (l *Lexicon) Profile(name string) domain.DialectProfile {
	if p, ok := l.profiles[name]; ok {
		return p
	}
	return domain.DialectProfile{Name: name, Vocabulary: map[string]string{}}
}

// Vocabulary returns the local→standard word mapping for a dialect.
func (l *Lexicon) Vocabulary(name string) map[string]string {
	return l.Profile(name).Vocabulary
}

// Greetings returns the greeting list for a dialect.
func (l *Lexicon) Greetings(name string) []string {
	return l.Profile(name).Greetings
}

// Names returns the dialect names in the fixed iteration order.
func (l *Lexicon) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
