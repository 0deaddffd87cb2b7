// Package worker runs background maintenance for the feedback tables.
package worker

import (
	"context"
	"log"
	"time"
)

// ReportExpirer flags aged profile complaint rows. Implemented by the
// postgres feedback store.
type ReportExpirer interface {
	ExpireProfileReports(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RetentionWorker periodically expires profile complaint reports older than
// the retention window. Expired rows stay in place for audit but drop out of
// active-history scans. Global suppression rows are deliberately untouched:
// "do not email again" has no expiry.
type RetentionWorker struct {
	store    ReportExpirer
	interval time.Duration
	window   time.Duration
	stopCh   chan struct{}
}

// NewRetentionWorker creates a retention worker. interval defaults to one
// hour, window to 365 days.
func NewRetentionWorker(store ReportExpirer, interval, window time.Duration) *RetentionWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if window <= 0 {
		window = 365 * 24 * time.Hour
	}
	return &RetentionWorker{
		store:    store,
		interval: interval,
		window:   window,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop and blocks until the context is cancelled or
// Stop is called.
func (w *RetentionWorker) Start(ctx context.Context) {
	log.Printf("[RetentionWorker] Starting with interval %v, window %v", w.interval, w.window)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop stops the worker.
func (w *RetentionWorker) Stop() {
	close(w.stopCh)
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	n, err := w.store.ExpireProfileReports(ctx, w.window)
	if err != nil {
		log.Printf("[RetentionWorker] Sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[RetentionWorker] Expired %d profile complaint reports", n)
	}
}
