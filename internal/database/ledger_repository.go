package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// LedgerRepository manages the processed_urls dedup ledger. The ledger is
// append-only: rows are never mutated or deleted.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// MarkProcessed records a URL as handled. Insertion is idempotent: the same
// URL may be rediscovered by different queries or racing cycles, so a
// duplicate insert is a silent no-op rather than an error.
func (r *LedgerRepository) MarkProcessed(ctx context.Context, url, topicID string, processedAt time.Time) error {
	query := `
		INSERT INTO processed_urls (url, topic_id, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, url, topicID, processedAt); err != nil {
		return fmt.Errorf("mark url processed: %w", err)
	}
	return nil
}

// IsProcessed reports whether a URL is already in the ledger.
func (r *LedgerRepository) IsProcessed(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM processed_urls WHERE url = $1)`, url)
	if err != nil {
		return false, fmt.Errorf("url processed check: %w", err)
	}
	return exists, nil
}
