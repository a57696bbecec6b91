package services

import (
	"context"
	"log/slog"
)

// EventPublisher pushes best-effort budget-change notifications after a
// successful mutation. A nil publisher disables events.
type EventPublisher interface {
	PublishBudgetEvent(ctx context.Context, operation string, month, year int) error
}

// publishEvent sends a change event; failures are logged and dropped, never
// surfaced to the caller (the mutation already committed).
func publishEvent(ctx context.Context, p EventPublisher, operation string, month, year int) {
	if p == nil {
		return
	}
	if err := p.PublishBudgetEvent(ctx, operation, month, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event",
			"operation", operation, "month", month, "year", year, "error", err)
	}
}
