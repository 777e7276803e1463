package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema holds the DDL for all persisted state. Single-process deployment,
// so idempotent CREATE IF NOT EXISTS at startup stands in for a migration
// tool.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id             TEXT PRIMARY KEY,
		content        TEXT NOT NULL,
		scheduled_time TIMESTAMPTZ NOT NULL,
		status         TEXT NOT NULL DEFAULT 'awaiting_approval',
		source_url     TEXT,
		image_url      TEXT,
		thread_content TEXT,
		published_id   TEXT,
		error_message  TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status_scheduled
		ON posts (status, scheduled_time)`,
	`CREATE TABLE IF NOT EXISTS monitored_topics (
		id               TEXT PRIMARY KEY,
		query            TEXT NOT NULL,
		source_kind      TEXT NOT NULL DEFAULT 'web_search',
		interval_minutes INTEGER NOT NULL DEFAULT 60,
		last_run         TIMESTAMPTZ,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS processed_urls (
		url          TEXT PRIMARY KEY,
		topic_id     TEXT REFERENCES monitored_topics(id),
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// InitSchema creates the tables gopost depends on if they do not exist.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
