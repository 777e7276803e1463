package dedup_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gopost/gopost/internal/dedup"
	"github.com/gopost/gopost/internal/logger"
)

type fakeLedger struct {
	processed map[string]bool
	marks     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: make(map[string]bool)}
}

func (f *fakeLedger) MarkProcessed(_ context.Context, url, _ string, _ time.Time) error {
	f.processed[url] = true
	f.marks++
	return nil
}

func (f *fakeLedger) IsProcessed(_ context.Context, url string) (bool, error) {
	return f.processed[url], nil
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestTracker_MarkThenSeen(t *testing.T) {
	mr, client := newTestRedis(t)
	ledger := newFakeLedger()
	tracker := dedup.NewTracker(ledger, client, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	const url = "https://example.com/article"

	seen, err := tracker.Seen(ctx, url)
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if seen {
		t.Fatal("fresh url should not be seen")
	}

	if err := tracker.Mark(ctx, url, "topic-1"); err != nil {
		t.Fatalf("Mark() error: %v", err)
	}

	seen, err = tracker.Seen(ctx, url)
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if !seen {
		t.Fatal("marked url should be seen")
	}

	if !mr.Exists("processed:url:" + url) {
		t.Error("mark should populate the redis cache")
	}
}

func TestTracker_CacheExpiryFallsThroughToLedger(t *testing.T) {
	mr, client := newTestRedis(t)
	ledger := newFakeLedger()
	tracker := dedup.NewTracker(ledger, client, time.Minute, logger.NewNopLogger())
	ctx := context.Background()

	const url = "https://example.com/old"
	if err := tracker.Mark(ctx, url, "topic-1"); err != nil {
		t.Fatalf("Mark() error: %v", err)
	}

	// Expire the cache entry; the ledger row is permanent.
	mr.FastForward(2 * time.Minute)

	seen, err := tracker.Seen(ctx, url)
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if !seen {
		t.Fatal("expired cache must fall through to the ledger, not report unseen")
	}
	if !mr.Exists("processed:url:" + url) {
		t.Error("a positive ledger hit should repopulate the cache")
	}
}

func TestTracker_RedisDownDegradesToLedger(t *testing.T) {
	mr, client := newTestRedis(t)
	ledger := newFakeLedger()
	tracker := dedup.NewTracker(ledger, client, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	const url = "https://example.com/resilient"
	ledger.processed[url] = true

	mr.Close()

	seen, err := tracker.Seen(ctx, url)
	if err != nil {
		t.Fatalf("Seen() with redis down should not error, got: %v", err)
	}
	if !seen {
		t.Fatal("ledger hit must be honored when redis is down")
	}
}

func TestTracker_WithoutCache(t *testing.T) {
	ledger := newFakeLedger()
	tracker := dedup.NewTracker(ledger, nil, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	const url = "https://example.com/no-cache"
	if err := tracker.Mark(ctx, url, "topic-1"); err != nil {
		t.Fatalf("Mark() error: %v", err)
	}
	seen, err := tracker.Seen(ctx, url)
	if err != nil {
		t.Fatalf("Seen() error: %v", err)
	}
	if !seen {
		t.Fatal("tracker without cache should still answer from the ledger")
	}
}
