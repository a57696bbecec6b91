package sheets

import (
	"context"

	"envelope/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter records one month's recomputed summary in an external
	// sheet. UpsertSummary replaces the period's existing row when there is
	// one, so re-exports are idempotent.
	SummaryWriter interface {
		UpsertSummary(ctx context.Context, s core.MonthSummary) (rowRef string, err error)
	}
)
