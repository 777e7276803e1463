package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gopost/gopost/internal/domain"
)

const topicSelectList = `id, query, source_kind, interval_minutes, last_run, is_active, created_at`

// TopicRepository manages the monitored_topics table.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new repository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Create inserts a new topic row.
func (r *TopicRepository) Create(ctx context.Context, t *domain.MonitoredTopic) error {
	query := `
		INSERT INTO monitored_topics (id, query, source_kind, interval_minutes, last_run, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Query, t.SourceKind, t.IntervalMinutes, t.LastRun, t.IsActive, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// GetByID retrieves a single topic.
func (r *TopicRepository) GetByID(ctx context.Context, id string) (*domain.MonitoredTopic, error) {
	query := `SELECT ` + topicSelectList + ` FROM monitored_topics WHERE id = $1`

	var t domain.MonitoredTopic
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &t, nil
}

// ListActive returns all active topics in creation order.
func (r *TopicRepository) ListActive(ctx context.Context) ([]domain.MonitoredTopic, error) {
	query := `SELECT ` + topicSelectList + `
		FROM monitored_topics WHERE is_active = TRUE ORDER BY created_at ASC`

	var topics []domain.MonitoredTopic
	if err := r.db.SelectContext(ctx, &topics, query); err != nil {
		return nil, fmt.Errorf("list active topics: %w", err)
	}
	return topics, nil
}

// UpdateLastRun stamps the topic's last processed cycle. Called once per
// processed cycle whether or not new items were found.
func (r *TopicRepository) UpdateLastRun(ctx context.Context, id string, ranAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE monitored_topics SET last_run = $2 WHERE id = $1`, id, ranAt)
	if err != nil {
		return fmt.Errorf("update last run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate is a soft delete. The row is retained so the dedup ledger's
// topic references stay intact.
func (r *TopicRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE monitored_topics SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate topic: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExistsByQuery reports whether an active topic with the same query and
// source kind already exists. Used by config seeding to stay idempotent.
func (r *TopicRepository) ExistsByQuery(ctx context.Context, query string, kind domain.SourceKind) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM monitored_topics WHERE query = $1 AND source_kind = $2 AND is_active = TRUE)`,
		query, kind)
	if err != nil {
		return false, fmt.Errorf("topic exists: %w", err)
	}
	return exists, nil
}
