package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/gopost/gopost/internal/domain"
	"github.com/gopost/gopost/internal/logger"
	"github.com/gopost/gopost/internal/monitor"
)

func TestWorker_StartStop(t *testing.T) {
	f := newFixture([]domain.MonitoredTopic{webTopic()}, nil)
	worker := monitor.NewWorker(f.service, time.Hour, logger.NewNopLogger())

	worker.Start(context.Background())
	if !worker.IsRunning() {
		t.Fatal("worker should report running after Start")
	}

	// Second start is a no-op.
	worker.Start(context.Background())

	worker.Stop()
}

func TestWorker_RunsImmediatelyOnStart(t *testing.T) {
	f := newFixture([]domain.MonitoredTopic{webTopic()}, nil)
	worker := monitor.NewWorker(f.service, time.Hour, logger.NewNopLogger())

	worker.Start(context.Background())
	defer worker.Stop()

	deadline := time.After(time.Second)
	for {
		if _, ok := f.topics.lastRun("topic-1"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("first cycle should run immediately on start")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
