package domain

import (
	"context"
	"time"
)

// InteractionStore records processed turns for offline reporting.
type InteractionStore interface {
	RecordInteraction(ctx context.Context, rec Interaction) error
	DialectStats(ctx context.Context) ([]DialectStat, error)
	Totals(ctx context.Context) (Totals, error)
	Close() error
}

// Interaction is one processed message, as persisted for the dashboard.
type Interaction struct {
	ID         int64     `json:"id"`
	GroupID    string    `json:"group_id"`
	UserID     string    `json:"user_id"`
	Dialect    string    `json:"dialect"`
	MessageLen int       `json:"message_len"`
	ResponseMs int64     `json:"response_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// DialectStat aggregates interactions per dialect.
type DialectStat struct {
	Dialect       string  `json:"dialect"`
	Messages      int64   `json:"messages"`
	Groups        int64   `json:"groups"`
	AvgResponseMs float64 `json:"avg_response_ms"`
}

// Totals aggregates interactions across all dialects.
type Totals struct {
	Messages     int64 `json:"messages"`
	ActiveGroups int64 `json:"active_groups"`
}
