package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTopic is returned when creating a monitored topic with invalid fields.
var ErrInvalidTopic = errors.New("invalid topic")

// SourceKind selects the discovery adapter for a monitored topic.
type SourceKind string

const (
	// SourceWebSearch queries the web-search backend with the topic query.
	SourceWebSearch SourceKind = "web_search"
	// SourceSocialSearch queries the social network's recent search; matches
	// are direct items that carry their own text and skip enrichment.
	SourceSocialSearch SourceKind = "social_search"
	// SourceSpecificURL extracts outbound links from a configured page.
	SourceSpecificURL SourceKind = "specific_url"
)

// Valid reports whether the kind is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceWebSearch, SourceSocialSearch, SourceSpecificURL:
		return true
	}
	return false
}

// MonitoredTopic is a recurring watch configuration.
type MonitoredTopic struct {
	ID              string     `db:"id"               json:"id"`
	Query           string     `db:"query"            json:"query"`
	SourceKind      SourceKind `db:"source_kind"      json:"source_kind"`
	IntervalMinutes int        `db:"interval_minutes" json:"interval_minutes"`
	LastRun         *time.Time `db:"last_run"         json:"last_run,omitempty"`
	IsActive        bool       `db:"is_active"        json:"is_active"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
}

const defaultTopicIntervalMinutes = 60

// NewMonitoredTopic creates an active topic with validation.
func NewMonitoredTopic(query string, kind SourceKind, intervalMinutes int) (*MonitoredTopic, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidTopic)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown source kind %q", ErrInvalidTopic, kind)
	}
	if intervalMinutes <= 0 {
		intervalMinutes = defaultTopicIntervalMinutes
	}

	return &MonitoredTopic{
		ID:              uuid.NewString(),
		Query:           query,
		SourceKind:      kind,
		IntervalMinutes: intervalMinutes,
		IsActive:        true,
		CreatedAt:       time.Now(),
	}, nil
}

// DueForRun reports whether the polling interval has elapsed.
// A topic that has never run is always due.
func (t *MonitoredTopic) DueForRun(now time.Time) bool {
	if t.LastRun == nil {
		return true
	}
	next := t.LastRun.Add(time.Duration(t.IntervalMinutes) * time.Minute)
	return !now.Before(next)
}

// ProcessedURL is an append-only dedup ledger entry. A URL appears at most
// once; the ledger is never pruned.
type ProcessedURL struct {
	URL         string    `db:"url"          json:"url"`
	TopicID     string    `db:"topic_id"     json:"topic_id"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}
