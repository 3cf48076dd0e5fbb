package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionSweeper periodically removes history entries older than the
// retention window. The window can be retuned at runtime by the config
// watcher.
type RetentionSweeper struct {
	service  *ListService
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	window time.Duration
}

// NewRetentionSweeper creates a sweeper that fires every interval and
// removes entries older than window.
func NewRetentionSweeper(service *ListService, interval, window time.Duration, logger *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		service:  service,
		interval: interval,
		window:   window,
		logger:   logger,
	}
}

// SetWindow updates the retention window for subsequent sweeps.
func (r *RetentionSweeper) SetWindow(window time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window = window
}

// Window returns the current retention window.
func (r *RetentionSweeper) Window() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.window
}

// Run blocks, sweeping on every tick until the context is cancelled.
func (r *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one retention pass. Errors are logged, never escalated; a
// failed sweep simply retries on the next tick.
func (r *RetentionSweeper) Sweep(ctx context.Context) {
	removed, err := r.service.PruneExpired(ctx, r.Window())
	if err != nil {
		r.logger.Error("history retention sweep failed", zap.Error(err))
		return
	}
	if removed == 0 {
		r.logger.Debug("no expired history entries to remove")
	}
}
