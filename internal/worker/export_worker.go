// Package worker recomputes and exports month summaries after budget changes.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"envelope/internal/amqp"
	"envelope/internal/services"
	"envelope/internal/sheets"
)

type period struct {
	Month int
	Year  int
}

// ExportWorker listens for budget events and writes the affected month's
// recomputed summary to the summary backend. Events for the same period are
// coalesced between flushes, so a burst of changes exports once.
type ExportWorker struct {
	budgets *services.BudgetService
	writer  sheets.SummaryWriter

	mu    sync.Mutex
	dirty map[period]struct{}
}

func NewExportWorker(budgets *services.BudgetService, writer sheets.SummaryWriter) *ExportWorker {
	return &ExportWorker{
		budgets: budgets,
		writer:  writer,
		dirty:   make(map[period]struct{}),
	}
}

// HandleBudgetEvent marks the event's period dirty. The actual export happens
// on the next flush, so handling never blocks the queue.
func (w *ExportWorker) HandleBudgetEvent(msg *amqp.BudgetEventMessage) error {
	if msg.Month < 1 || msg.Month > 12 || msg.Year < 1 {
		return fmt.Errorf("event %q has invalid period %d/%d", msg.Operation, msg.Month, msg.Year)
	}
	w.mu.Lock()
	w.dirty[period{Month: msg.Month, Year: msg.Year}] = struct{}{}
	w.mu.Unlock()
	return nil
}

// Run flushes dirty periods every interval until ctx is cancelled. A final
// flush runs on shutdown so no marked period is dropped.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Export worker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			w.Flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush exports every dirty period. Failed periods stay marked and retry on
// the next flush.
func (w *ExportWorker) Flush(ctx context.Context) {
	w.mu.Lock()
	pending := make([]period, 0, len(w.dirty))
	for p := range w.dirty {
		pending = append(pending, p)
	}
	w.dirty = make(map[period]struct{})
	w.mu.Unlock()

	for _, p := range pending {
		if err := w.exportPeriod(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to export month summary",
				"month", p.Month, "year", p.Year, "error", err)
			w.mu.Lock()
			w.dirty[p] = struct{}{}
			w.mu.Unlock()
		}
	}
}

func (w *ExportWorker) exportPeriod(ctx context.Context, p period) error {
	month, err := w.budgets.GetAllBudgets(ctx, p.Month, p.Year)
	if err != nil {
		return fmt.Errorf("assemble month %d/%d: %w", p.Month, p.Year, err)
	}

	summary := month.Summarize()
	ref, err := w.writer.UpsertSummary(ctx, summary)
	if err != nil {
		return fmt.Errorf("write summary %d/%d: %w", p.Month, p.Year, err)
	}

	slog.InfoContext(ctx, "Month summary exported",
		"month", p.Month,
		"year", p.Year,
		"row_ref", ref,
		"expected_balance", summary.ExpectedBalance.String(),
		"actual_balance", summary.ActualBalance.String())
	return nil
}
