// Package worker keeps the monthly totals spreadsheet in step with the
// store.
package worker

import (
	"context"
	"fmt"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/sheets"
)

// TotalsSource reads uncached monthly totals.
type TotalsSource interface {
	MonthlyTotals(ctx context.Context) (core.MonthlyCategoryTotals, error)
}

// SyncWorker re-exports monthly totals after change events, coalescing
// bursts of events into one export. A periodic export covers lost messages.
type SyncWorker struct {
	source   TotalsSource
	exporter sheets.MonthlyTotalsExporter
	logger   *applog.Logger

	debounce time.Duration
	interval time.Duration
	dirty    chan struct{}
}

func NewSyncWorker(source TotalsSource, exporter sheets.MonthlyTotalsExporter, logger *applog.Logger, debounce, interval time.Duration) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncWorker{
		source:   source,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentSheets),
		debounce: debounce,
		interval: interval,
		dirty:    make(chan struct{}, 1),
	}
}

// HandleEvent marks the spreadsheet stale. It never blocks.
func (w *SyncWorker) HandleEvent(ctx context.Context, e amqp.Event) error {
	w.logger.DebugContext(ctx, "Change event received", applog.FieldEvent, e.Type, "id", e.ID)
	select {
	case w.dirty <- struct{}{}:
	default:
	}
	return nil
}

// Sync exports the current totals once.
func (w *SyncWorker) Sync(ctx context.Context) error {
	totals, err := w.source.MonthlyTotals(ctx)
	if err != nil {
		return fmt.Errorf("load monthly totals: %w", err)
	}
	ref, err := w.exporter.ExportMonthlyTotals(ctx, totals)
	if err != nil {
		return fmt.Errorf("export monthly totals: %w", err)
	}
	w.logger.InfoContext(ctx, "Monthly totals synced",
		applog.FieldSheetsRef, ref,
		"categories", len(totals))
	return nil
}

// Run exports on startup, then after each debounced burst of events and on
// every interval tick, until ctx is done. Export failures are logged and
// retried on the next trigger.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.syncAndLog(ctx, "startup")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.dirty:
			if timerCh == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			}
		case <-timerCh:
			timerCh = nil
			w.syncAndLog(ctx, "event")
		case <-ticker.C:
			w.syncAndLog(ctx, "periodic")
		}
	}
}

func (w *SyncWorker) syncAndLog(ctx context.Context, trigger string) {
	if err := w.Sync(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Monthly totals sync failed",
			applog.FieldError, err,
			"trigger", trigger)
	}
}
