package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/gopost/gopost/internal/logger"
)

const (
	defaultDispatchInterval = time.Minute
	staleSweepInterval      = time.Hour
	staleDraftAge           = 24 * time.Hour
)

// Worker runs the dispatch loop and the stale-draft sweep.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   logger.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewWorker creates a dispatch worker.
func NewWorker(service *Service, interval time.Duration, log logger.Logger) *Worker {
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	return &Worker{
		service:  service,
		interval: interval,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the dispatch and sweep loops.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.wg.Add(1)
	go w.runSweep(ctx)

	w.logger.Info("dispatch worker started",
		logger.Duration("interval", w.interval))
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("dispatch worker stopped")
}

// IsRunning reports whether the worker loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.service.CheckAndSend(ctx); err != nil {
		w.logger.Error("dispatch run failed", logger.Error(err))
	}
}

// runSweep periodically expires drafts that sat unapproved too long.
func (w *Worker) runSweep(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			swept, err := w.service.SweepStale(ctx, staleDraftAge)
			if err != nil {
				w.logger.Error("stale draft sweep failed", logger.Error(err))
			} else if swept > 0 {
				w.logger.Info("expired stale drafts", logger.Int64("count", swept))
			}
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
