package memory

import (
	"context"
	"testing"

	"envelope/internal/core"
)

func TestUpsertSummaryReplacesSamePeriod(t *testing.T) {
	s := New()

	ref, err := s.UpsertSummary(context.Background(), core.MonthSummary{
		Month: 1, Year: 2026, ActualBalance: core.Cents(10000),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	_, err = s.UpsertSummary(context.Background(), core.MonthSummary{
		Month: 2, Year: 2026, ActualBalance: core.Cents(20000),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Same period again: replaced in place.
	ref, err = s.UpsertSummary(context.Background(), core.MonthSummary{
		Month: 1, Year: 2026, ActualBalance: core.Cents(15000),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ActualBalance.Cents != 15000 {
		t.Errorf("first row balance = %s, want 150.00", rows[0].ActualBalance)
	}
}
