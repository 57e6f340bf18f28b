// Package storage persists processed interactions in SQLite for the
// dashboard's aggregate queries.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dialectbot/internal/domain"
)

// SQLiteStore implements domain.InteractionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) RecordInteraction(ctx context.Context, rec domain.Interaction) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (group_id, user_id, dialect, message_len, response_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.GroupID, rec.UserID, rec.Dialect, rec.MessageLen, rec.ResponseMs, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DialectStats(ctx context.Context) ([]domain.DialectStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dialect,
		       COUNT(*),
		       COUNT(DISTINCT group_id),
		       COALESCE(AVG(response_ms), 0)
		FROM interactions
		GROUP BY dialect
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query dialect stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.DialectStat
	for rows.Next() {
		var st domain.DialectStat
		if err := rows.Scan(&st.Dialect, &st.Messages, &st.Groups, &st.AvgResponseMs); err != nil {
			return nil, fmt.Errorf("scan dialect stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Totals(ctx context.Context) (domain.Totals, error) {
	var t domain.Totals
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT group_id) FROM interactions`)
	if err := row.Scan(&t.Messages, &t.ActiveGroups); err != nil {
		return domain.Totals{}, fmt.Errorf("query totals: %w", err)
	}
	return t, nil
}

// RecentInteractions returns the latest n interactions, newest first.
func (s *SQLiteStore) RecentInteractions(ctx context.Context, n int) ([]domain.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, user_id, dialect, message_len, response_ms, created_at
		FROM interactions
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var rec domain.Interaction
		if err := rows.Scan(&rec.ID, &rec.GroupID, &rec.UserID, &rec.Dialect,
			&rec.MessageLen, &rec.ResponseMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
