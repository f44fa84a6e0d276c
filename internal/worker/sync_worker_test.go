package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
)

type fakeSource struct {
	totals core.MonthlyCategoryTotals
	err    error
}

func (f fakeSource) MonthlyTotals(context.Context) (core.MonthlyCategoryTotals, error) {
	return f.totals, f.err
}

type countingExporter struct {
	mu    sync.Mutex
	calls int
	err   error
	ch    chan struct{}
}

func newCountingExporter() *countingExporter {
	return &countingExporter{ch: make(chan struct{}, 16)}
}

func (c *countingExporter) ExportMonthlyTotals(context.Context, core.MonthlyCategoryTotals) (string, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	c.mu.Unlock()
	select {
	case c.ch <- struct{}{}:
	default:
	}
	return "'Monthly totals'!A1:B2", err
}

func (c *countingExporter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingExporter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for export")
	}
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestSyncPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	exp := newCountingExporter()

	w := NewSyncWorker(fakeSource{err: errors.New("db down")}, exp, quietLogger(), 0, time.Hour)
	if err := w.Sync(ctx); err == nil {
		t.Fatal("expected source error")
	}
	if exp.count() != 0 {
		t.Fatal("exporter should not run when the source fails")
	}

	exp.err = errors.New("quota")
	w = NewSyncWorker(fakeSource{totals: core.MonthlyCategoryTotals{}}, exp, quietLogger(), 0, time.Hour)
	if err := w.Sync(ctx); err == nil {
		t.Fatal("expected export error")
	}
}

func TestRunCoalescesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exp := newCountingExporter()
	w := NewSyncWorker(fakeSource{totals: core.MonthlyCategoryTotals{}}, exp, quietLogger(), 50*time.Millisecond, time.Hour)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	exp.wait(t) // startup export

	for i := 0; i < 5; i++ {
		if err := w.HandleEvent(ctx, amqp.NewEvent(amqp.TransactionCreated, int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	exp.wait(t)

	time.Sleep(150 * time.Millisecond)
	if got := exp.count(); got != 2 {
		t.Fatalf("expected startup plus one coalesced export, got %d", got)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRunExportsPeriodically(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exp := newCountingExporter()
	w := NewSyncWorker(fakeSource{totals: core.MonthlyCategoryTotals{}}, exp, quietLogger(), time.Second, 20*time.Millisecond)
	go func() { _ = w.Run(ctx) }()

	exp.wait(t)
	exp.wait(t)
	exp.wait(t)
}
