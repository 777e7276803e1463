// Package dedup tracks which source URLs have already been turned into a
// decision (queued or permanently skipped).
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gopost/gopost/internal/logger"
)

// Ledger is the durable, authoritative record of processed URLs.
type Ledger interface {
	MarkProcessed(ctx context.Context, url, topicID string, processedAt time.Time) error
	IsProcessed(ctx context.Context, url string) (bool, error)
}

// Tracker answers "seen before?" with a Redis fast path in front of the SQL
// ledger. Redis entries carry a TTL; the ledger does not, so a cache miss
// always falls through to the authoritative check. Redis being down degrades
// to SQL-only operation, never to duplicate posts.
type Tracker struct {
	ledger Ledger
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

// NewTracker creates a tracker. client may be nil to run without the cache.
func NewTracker(ledger Ledger, client redis.UniversalClient, ttl time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		ledger: ledger,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (t *Tracker) key(url string) string {
	return fmt.Sprintf("processed:url:%s", url)
}

// Seen reports whether the URL has already been processed.
func (t *Tracker) Seen(ctx context.Context, url string) (bool, error) {
	if t.client != nil {
		exists, err := t.client.Exists(ctx, t.key(url)).Result()
		if err != nil {
			t.logger.Warn("redis dedup check failed, falling back to ledger",
				logger.String("url", url),
				logger.Error(err),
			)
		} else if exists == 1 {
			return true, nil
		}
	}

	processed, err := t.ledger.IsProcessed(ctx, url)
	if err != nil {
		return false, err
	}
	if processed {
		t.cache(ctx, url)
	}
	return processed, nil
}

// Mark records the URL as processed. The ledger insert is idempotent, so two
// topics racing on the same URL still yield exactly one record.
func (t *Tracker) Mark(ctx context.Context, url, topicID string) error {
	if err := t.ledger.MarkProcessed(ctx, url, topicID, time.Now()); err != nil {
		return err
	}
	t.cache(ctx, url)
	return nil
}

func (t *Tracker) cache(ctx context.Context, url string) {
	if t.client == nil {
		return
	}
	if err := t.client.Set(ctx, t.key(url), "1", t.ttl).Err(); err != nil {
		// Cache write failure is not an error; the ledger already has the row.
		t.logger.Warn("redis dedup cache write failed",
			logger.String("url", url),
			logger.Error(err),
		)
	}
}
