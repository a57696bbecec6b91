package services

import (
	"context"
	"testing"

	"envelope/internal/core"
)

func TestApplyIncrementsInPriorityOrder(t *testing.T) {
	e := newEngine()
	income := e.mustCreate(t, incomeReq("Salary", 1, 2026, 100000))
	e.mustSpend(t, income.ID, 100000, 1, 2026)
	c := e.mustCreate(t, fundReq("Third", 1, 2026, 10000, 3))
	a := e.mustCreate(t, fundReq("First", 1, 2026, 10000, 1))
	b := e.mustCreate(t, fundReq("Second", 1, 2026, 10000, 2))

	result, err := e.increments.Apply(context.Background(), 1, 2026, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Applied) != 3 {
		t.Fatalf("applied %d funds, want 3", len(result.Applied))
	}
	wantOrder := []int64{a.ID, b.ID, c.ID}
	for i, applied := range result.Applied {
		if applied.FundID != wantOrder[i] {
			t.Fatalf("position %d applied fund %d, want %d", i, applied.FundID, wantOrder[i])
		}
	}
	if result.TotalApplied.Cents != 30000 {
		t.Fatalf("total applied = %s, want 300.00", result.TotalApplied)
	}
}

func TestApplySafeModePartialApplication(t *testing.T) {
	e := newEngine()
	income := e.mustCreate(t, incomeReq("Salary", 1, 2026, 15000))
	e.mustSpend(t, income.ID, 15000, 1, 2026)
	first := e.mustCreate(t, fundReq("First", 1, 2026, 10000, 1))
	second := e.mustCreate(t, fundReq("Second", 1, 2026, 10000, 2))

	result, err := e.increments.Apply(context.Background(), 1, 2026, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.BalanceBefore.Cents != 15000 {
		t.Fatalf("balance before = %s, want 150.00", result.BalanceBefore)
	}
	if len(result.Applied) != 2 {
		t.Fatalf("applied %d funds, want 2: %+v", len(result.Applied), result)
	}
	if result.Applied[0].FundID != first.ID || result.Applied[0].AmountAdded.Cents != 10000 {
		t.Fatalf("first application = %+v, want full 100.00", result.Applied[0])
	}
	if result.Applied[1].FundID != second.ID || result.Applied[1].AmountAdded.Cents != 5000 {
		t.Fatalf("second application = %+v, want partial 50.00", result.Applied[1])
	}
	if !result.BalanceAfter.IsZero() {
		t.Fatalf("balance after = %s, want 0.00", result.BalanceAfter)
	}
	if result.WouldGoNegative {
		t.Fatalf("safe mode reported a negative balance")
	}

	// The partial application is persisted, not just reported.
	calc, err := e.funds.CalculateFund(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("calculate fund: %v", err)
	}
	if calc.MonthAmount.Cents != 5000 {
		t.Fatalf("persisted month amount = %s, want 50.00", calc.MonthAmount)
	}
}

func TestApplySafeModeSkipsWhenExhausted(t *testing.T) {
	e := newEngine()
	income := e.mustCreate(t, incomeReq("Salary", 1, 2026, 10000))
	e.mustSpend(t, income.ID, 10000, 1, 2026)
	e.mustCreate(t, fundReq("First", 1, 2026, 10000, 1))
	second := e.mustCreate(t, fundReq("Second", 1, 2026, 10000, 2))

	result, err := e.increments.Apply(context.Background(), 1, 2026, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Applied) != 1 || len(result.Skipped) != 1 {
		t.Fatalf("applied=%d skipped=%d, want 1/1", len(result.Applied), len(result.Skipped))
	}
	skipped := result.Skipped[0]
	if skipped.FundID != second.ID || skipped.Reason != skipInsufficientFunds {
		t.Fatalf("skipped = %+v", skipped)
	}
}

func TestApplyWithoutSafeModeGoesNegative(t *testing.T) {
	e := newEngine()
	income := e.mustCreate(t, incomeReq("Salary", 1, 2026, 5000))
	e.mustSpend(t, income.ID, 5000, 1, 2026)
	e.mustCreate(t, fundReq("Goal", 1, 2026, 10000, 1))

	result, err := e.increments.Apply(context.Background(), 1, 2026, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Applied[0].AmountAdded.Cents != 10000 {
		t.Fatalf("applied = %s, want full 100.00", result.Applied[0].AmountAdded)
	}
	if result.BalanceAfter.Cents != -5000 {
		t.Fatalf("balance after = %s, want -50.00", result.BalanceAfter)
	}
	if !result.WouldGoNegative {
		t.Fatalf("negative balance not flagged")
	}
}

func TestApplyRespectsMaxHeadroom(t *testing.T) {
	e := newEngine()
	income := e.mustCreate(t, incomeReq("Salary", 1, 2026, 100000))
	e.mustSpend(t, income.ID, 100000, 1, 2026)
	max := core.Cents(45000)
	capped := e.mustCreate(t, CreateBudgetRequest{
		Name: "Capped", Type: core.KindFund, Month: 1, Year: 2026,
		Increment: core.Cents(10000), Priority: 1, Max: &max,
	})
	e.setMonthAmount(t, capped.ID, 40000)

	result, err := e.increments.Apply(context.Background(), 1, 2026, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Applied) != 1 {
		t.Fatalf("applied %d funds, want 1", len(result.Applied))
	}
	if result.Applied[0].AmountAdded.Cents != 5000 {
		t.Fatalf("applied = %s, want headroom-capped 50.00", result.Applied[0].AmountAdded)
	}

	// A second pass finds the fund at its maximum.
	result, err = e.increments.Apply(context.Background(), 1, 2026, false)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != skipAtMaximum {
		t.Fatalf("second pass = %+v, want at-maximum skip", result)
	}
}

func TestApplySkipsZeroIncrementAndDisabled(t *testing.T) {
	e := newEngine()
	income := e.mustCreate(t, incomeReq("Salary", 1, 2026, 100000))
	e.mustSpend(t, income.ID, 100000, 1, 2026)
	idle := e.mustCreate(t, fundReq("Idle", 1, 2026, 0, 1))

	result, err := e.increments.Apply(context.Background(), 1, 2026, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(result.Applied) != 0 {
		t.Fatalf("applied %d funds, want 0", len(result.Applied))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != skipZeroIncrement {
		t.Fatalf("skipped = %+v, want zero-increment skip for fund %d", result.Skipped, idle.ID)
	}
	if result.BalanceBefore.Cents != result.BalanceAfter.Cents {
		t.Fatalf("no-op pass moved balance %s -> %s", result.BalanceBefore, result.BalanceAfter)
	}
}
