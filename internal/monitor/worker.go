package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/gopost/gopost/internal/logger"
)

const defaultCycleInterval = 10 * time.Minute

// Worker runs monitoring cycles on a fixed interval.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   logger.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewWorker creates a monitoring worker.
func NewWorker(service *Service, interval time.Duration, log logger.Logger) *Worker {
	if interval <= 0 {
		interval = defaultCycleInterval
	}
	return &Worker{
		service:  service,
		interval: interval,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the cycle loop. The first cycle runs immediately.
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

	w.logger.Info("monitoring worker started",
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
	w.logger.Info("monitoring worker stopped")
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
	if err := w.service.RunCycle(ctx); err != nil {
		w.logger.Error("monitoring cycle failed", logger.Error(err))
	}
}
