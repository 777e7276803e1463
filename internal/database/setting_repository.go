package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SettingRepository manages the flat settings key/value table.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository creates a new repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the value for key, or fallback when the key is absent.
func (r *SettingRepository) Get(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value,
		`SELECT value FROM settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// Set upserts the value for key. No history is retained.
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
