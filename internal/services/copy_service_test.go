package services

import (
	"context"
	"testing"

	"envelope/internal/core"
)

func (e *engine) seedSourceMonth(t *testing.T, month, year int) core.Budget {
	t.Helper()
	e.mustCreate(t, incomeReq("Salary", month, year, 300000))
	e.mustCreate(t, expenseReq("Rent", month, year, 120000))
	e.mustCreate(t, flexibleReq("Groceries", month, year, 40000))
	fund := e.mustCreate(t, fundReq("Vacation", month, year, 10000, 1))
	e.setMonthAmount(t, fund.ID, 10000)
	return fund
}

func TestCopyClonesConfigurationNotActivity(t *testing.T) {
	e := newEngine()
	fund := e.seedSourceMonth(t, 1, 2026)

	result, err := e.copier.Copy(context.Background(), 2, 2026, 1, 2026)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	want := CopiedBudgets{Income: 1, Expense: 1, Flexible: 1, Fund: 1}
	if result.Copied != want {
		t.Fatalf("copied = %+v, want %+v", result.Copied, want)
	}

	month, err := e.store.ListBudgets(context.Background(), 2, 2026)
	if err != nil {
		t.Fatalf("list target: %v", err)
	}
	if len(month) != 4 {
		t.Fatalf("target has %d budgets, want 4", len(month))
	}
	for _, b := range month {
		if b.Month != 2 || b.Year != 2026 {
			t.Fatalf("copied budget %q in %d/%d, want 2/2026", b.Name, b.Month, b.Year)
		}
		if b.IsFund() {
			if !b.MonthAmount.IsZero() {
				t.Fatalf("copied fund carries month amount %s, want 0", b.MonthAmount)
			}
			if b.MasterID != fund.MasterID {
				t.Fatalf("copied fund master = %d, want %d", b.MasterID, fund.MasterID)
			}
			if b.Increment.Cents != 10000 || b.Priority != 1 {
				t.Fatalf("copied fund configuration lost: %+v", b)
			}
		}
	}

	// Both months now feed the same master; only January's allocation counts.
	details, err := e.funds.MasterDetails(context.Background(), fund.MasterID)
	if err != nil {
		t.Fatalf("master details: %v", err)
	}
	if len(details.Funds) != 2 || details.TotalBalance.Cents != 10000 {
		t.Fatalf("master after copy = %+v", details)
	}
}

func TestCopyDefaultsToPreviousMonth(t *testing.T) {
	e := newEngine()
	e.seedSourceMonth(t, 12, 2025)

	result, err := e.copier.Copy(context.Background(), 1, 2026, 0, 0)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if result.SourceMonth != 12 || result.SourceYear != 2025 {
		t.Fatalf("source = %d/%d, want 12/2025", result.SourceMonth, result.SourceYear)
	}
}

func TestCopyRejectsNonEmptyTarget(t *testing.T) {
	e := newEngine()
	e.seedSourceMonth(t, 1, 2026)
	e.mustCreate(t, incomeReq("Bonus", 2, 2026, 50000))

	_, err := e.copier.Copy(context.Background(), 2, 2026, 1, 2026)
	wantKind(t, err, core.KindConflict)
}

func TestCopyRejectsEmptySource(t *testing.T) {
	e := newEngine()
	_, err := e.copier.Copy(context.Background(), 2, 2026, 1, 2026)
	wantKind(t, err, core.KindNotFound)
}

func TestCopyRejectsSamePeriod(t *testing.T) {
	e := newEngine()
	e.seedSourceMonth(t, 1, 2026)
	_, err := e.copier.Copy(context.Background(), 1, 2026, 1, 2026)
	wantKind(t, err, core.KindValidation)
}
