// Package domain contains the core domain models for gopost.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entity is not found in the database.
var ErrNotFound = errors.New("entity not found")

// ErrInvalidPost is returned when creating a post with invalid fields.
var ErrInvalidPost = errors.New("invalid post")

// ErrInvalidTransition is returned when a status change would move a post
// backwards through its lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// PostStatus represents the lifecycle state of a post.
type PostStatus string

const (
	// StatusAwaitingApproval is the entry state for every composed post.
	// Nothing is dispatched from this state.
	StatusAwaitingApproval PostStatus = "awaiting_approval"
	// StatusPending means the post was approved and is dispatchable once
	// its scheduled time has passed.
	StatusPending PostStatus = "pending"
	StatusSent    PostStatus = "sent"
	StatusFailed  PostStatus = "failed"
	StatusSkipped PostStatus = "skipped"
)

// Post is a unit of content destined for publication.
type Post struct {
	ID            string     `db:"id"             json:"id"`
	Content       string     `db:"content"        json:"content"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status        PostStatus `db:"status"         json:"status"`
	SourceURL     *string    `db:"source_url"     json:"source_url,omitempty"`
	ImageURL      *string    `db:"image_url"      json:"image_url,omitempty"`
	ThreadContent *string    `db:"thread_content" json:"thread_content,omitempty"`
	PublishedID   *string    `db:"published_id"   json:"published_id,omitempty"`
	ErrorMessage  *string    `db:"error_message"  json:"error_message,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
}

// NewPost creates a post in the awaiting_approval state.
// Content length is deliberately unconstrained here; length rules are
// enforced at dispatch time where overflow can still be threaded.
func NewPost(content string, scheduledTime time.Time) (*Post, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidPost)
	}
	if scheduledTime.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_time is required", ErrInvalidPost)
	}

	return &Post{
		ID:            uuid.NewString(),
		Content:       content,
		ScheduledTime: scheduledTime,
		Status:        StatusAwaitingApproval,
		CreatedAt:     time.Now(),
	}, nil
}

// SetSource attaches the originating URL and optional image reference.
func (p *Post) SetSource(sourceURL, imageURL string) {
	if sourceURL != "" {
		p.SourceURL = &sourceURL
	}
	if imageURL != "" {
		p.ImageURL = &imageURL
	}
}

// IsDue reports whether the post is dispatchable at the given instant.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == StatusPending && !p.ScheduledTime.After(now)
}

// IsTerminal reports whether the post has reached a final state.
func (p *Post) IsTerminal() bool {
	switch p.Status {
	case StatusSent, StatusFailed, StatusSkipped:
		return true
	case StatusAwaitingApproval, StatusPending:
		return false
	}
	return false
}

// CanTransition reports whether moving to the target status is a legal
// forward move. Approval is the only path out of awaiting_approval, so a
// draft can never jump straight to sent.
func (p *Post) CanTransition(target PostStatus) bool {
	switch p.Status {
	case StatusAwaitingApproval:
		return target == StatusPending
	case StatusPending:
		return target == StatusSent || target == StatusFailed || target == StatusSkipped || target == StatusPending
	default:
		return false
	}
}

// QueueStats holds queue depth numbers for the dashboard surface.
type QueueStats struct {
	AwaitingApproval int64 `json:"awaiting_approval"`
	Pending          int64 `json:"pending"`
	SentThisMonth    int64 `json:"sent_this_month"`
	MonthlyLimit     int   `json:"monthly_limit"`
}
