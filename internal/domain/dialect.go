package domain

import "time"

// DialectProfile is the static data for one Arabic dialect.
// Vocabulary maps local-dialect words to their standard-Arabic equivalents;
// detection tests membership of the local keys, refinement walks the mapping
// in reverse.
type DialectProfile struct {
	Name       string             `json:"name" yaml:"name"`
	Greetings  []string           `json:"greetings" yaml:"greetings"`
	Vocabulary map[string]string  `json:"vocabulary" yaml:"vocabulary"`
	Templates  []SentenceTemplate `json:"templates,omitempty" yaml:"templates,omitempty"`
}

// SentenceTemplate pairs a dialect sentence pattern with its standard meaning.
// Unused by detection; surfaced through the dashboard.
type SentenceTemplate struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Meaning string `json:"meaning" yaml:"meaning"`
}

// GroupStats is the read-only administrative view of one group's memory.
type GroupStats struct {
	GroupID      string    `json:"group_id"`
	Dialect      string    `json:"dialect"`
	MessageCount int       `json:"message_count"`
	UserCount    int       `json:"user_count"`
	LastActive   time.Time `json:"last_active"`
}
