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

// postSelectList is the column list for SELECTs on posts (single source for
// schema changes).
const postSelectList = `id, content, scheduled_time, status, source_url,
		image_url, thread_content, published_id, error_message, created_at`

// PostRepository manages the posts table.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post row.
func (r *PostRepository) Create(ctx context.Context, p *domain.Post) error {
	query := `
		INSERT INTO posts (id, content, scheduled_time, status, source_url,
			image_url, thread_content, published_id, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Content, p.ScheduledTime, p.Status, p.SourceURL,
		p.ImageURL, p.ThreadContent, p.PublishedID, p.ErrorMessage, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	query := `SELECT ` + postSelectList + ` FROM posts WHERE id = $1`

	var p domain.Post
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// ListByStatus returns all posts in the given status, earliest schedule first.
func (r *PostRepository) ListByStatus(ctx context.Context, status domain.PostStatus) ([]domain.Post, error) {
	query := `SELECT ` + postSelectList + `
		FROM posts WHERE status = $1 ORDER BY scheduled_time ASC`

	var posts []domain.Post
	if err := r.db.SelectContext(ctx, &posts, query, status); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// FetchDue returns pending posts whose scheduled time has passed.
func (r *PostRepository) FetchDue(ctx context.Context, now time.Time) ([]domain.Post, error) {
	query := `SELECT ` + postSelectList + `
		FROM posts
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC`

	var posts []domain.Post
	if err := r.db.SelectContext(ctx, &posts, query, domain.StatusPending, now); err != nil {
		return nil, fmt.Errorf("fetch due posts: %w", err)
	}
	return posts, nil
}

// execExpectOneRow runs an exec and returns domain.ErrNotFound when no row
// was affected.
func (r *PostRepository) execExpectOneRow(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Approve moves an awaiting_approval post to pending. The WHERE clause on
// status is what enforces the approval gate: an already-resolved post is
// reported as not found instead of being resurrected.
func (r *PostRepository) Approve(ctx context.Context, id string) error {
	query := `
		UPDATE posts
		SET status = $2
		WHERE id = $1 AND status = $3`
	if err := r.execExpectOneRow(ctx, query, id, domain.StatusPending, domain.StatusAwaitingApproval); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("approve post: %w", err)
	}
	return nil
}

// MarkSent marks a post as successfully published.
func (r *PostRepository) MarkSent(ctx context.Context, id, publishedID string) error {
	query := `
		UPDATE posts
		SET status = $2, published_id = $3, error_message = NULL
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id, domain.StatusSent, publishedID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkFailed marks a post as permanently failed.
func (r *PostRepository) MarkFailed(ctx context.Context, id, errorMsg string) error {
	query := `
		UPDATE posts
		SET status = $2, error_message = $3
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id, domain.StatusFailed, errorMsg); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkSkipped marks a post as skipped by quota admission control.
func (r *PostRepository) MarkSkipped(ctx context.Context, id, errorMsg string) error {
	query := `
		UPDATE posts
		SET status = $2, error_message = $3
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id, domain.StatusSkipped, errorMsg); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark skipped: %w", err)
	}
	return nil
}

// NoteRetry records an informational error on a post that stays pending,
// so it is picked up again on the next dispatch tick.
func (r *PostRepository) NoteRetry(ctx context.Context, id, errorMsg string) error {
	query := `
		UPDATE posts
		SET error_message = $2
		WHERE id = $1 AND status = $3`
	if err := r.execExpectOneRow(ctx, query, id, errorMsg, domain.StatusPending); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("note retry: %w", err)
	}
	return nil
}

// UpdateContent edits the text and image of a post that has not been
// dispatched yet.
func (r *PostRepository) UpdateContent(ctx context.Context, id, content string, imageURL *string) error {
	query := `
		UPDATE posts
		SET content = $2, image_url = $3
		WHERE id = $1 AND status IN ($4, $5)`
	err := r.execExpectOneRow(ctx, query, id, content, imageURL,
		domain.StatusAwaitingApproval, domain.StatusPending)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// ForceSend resets a pending post's schedule to now so the next dispatch
// tick picks it up ahead of its staggered slot.
func (r *PostRepository) ForceSend(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE posts
		SET scheduled_time = $2
		WHERE id = $1 AND status = $3`
	if err := r.execExpectOneRow(ctx, query, id, now, domain.StatusPending); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("force send: %w", err)
	}
	return nil
}

// Delete removes a post outright. Used for rejection; rejected drafts carry
// no future value.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	if err := r.execExpectOneRow(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// MonthlySentCount counts posts sent in the current calendar month of the
// given instant, by scheduled time.
func (r *PostRepository) MonthlySentCount(ctx context.Context, now time.Time) (int, error) {
	monthStart := MonthStart(now)

	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM posts WHERE status = $1 AND scheduled_time >= $2`,
		domain.StatusSent, monthStart)
	if err != nil {
		return 0, fmt.Errorf("monthly sent count: %w", err)
	}
	return count, nil
}

// SweepStaleDrafts deletes awaiting_approval posts older than maxAge.
// Unattended discovery accumulates drafts faster than a human reviews them.
func (r *PostRepository) SweepStaleDrafts(ctx context.Context, now time.Time, maxAge time.Duration) (int64, error) {
	cutoff := now.Add(-maxAge)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE status = $1 AND created_at < $2`,
		domain.StatusAwaitingApproval, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale drafts: %w", err)
	}
	return result.RowsAffected()
}

// ListSentSince returns posts sent since the given instant, newest first.
func (r *PostRepository) ListSentSince(ctx context.Context, since time.Time) ([]domain.Post, error) {
	query := `SELECT ` + postSelectList + `
		FROM posts
		WHERE status = $1 AND scheduled_time >= $2
		ORDER BY scheduled_time DESC`

	var posts []domain.Post
	if err := r.db.SelectContext(ctx, &posts, query, domain.StatusSent, since); err != nil {
		return nil, fmt.Errorf("list sent since: %w", err)
	}
	return posts, nil
}

// CountByStatus returns the number of posts in the given status.
func (r *PostRepository) CountByStatus(ctx context.Context, status domain.PostStatus) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM posts WHERE status = $1`, status)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// MonthStart returns midnight on the first day of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
