package services

import (
	"context"
	"testing"

	"envelope/internal/core"
)

func TestCreateBudgetDuplicateNameAndKind(t *testing.T) {
	e := newEngine()
	e.mustCreate(t, expenseReq("Rent", 1, 2026, 120000))
	_, err := e.budgets.CreateBudget(context.Background(), expenseReq("Rent", 1, 2026, 120000))
	wantKind(t, err, core.KindConflict)

	// Same name with a different kind is a different lineage.
	if _, err := e.budgets.CreateBudget(context.Background(), incomeReq("Rent", 1, 2026, 120000)); err != nil {
		t.Fatalf("same name, different kind: %v", err)
	}
}

func TestCreateBudgetValidation(t *testing.T) {
	e := newEngine()
	_, err := e.budgets.CreateBudget(context.Background(), expenseReq("", 1, 2026, 120000))
	wantKind(t, err, core.KindValidation)
	_, err = e.budgets.CreateBudget(context.Background(), expenseReq("Rent", 13, 2026, 120000))
	wantKind(t, err, core.KindValidation)
}

func TestCreateFundWithExistingMaster(t *testing.T) {
	e := newEngine()
	jan := e.mustCreate(t, fundReq("Vacation", 1, 2026, 20000, 1))

	req := fundReq("Vacation", 2, 2026, 20000, 1)
	req.MasterID = jan.MasterID
	feb := e.mustCreate(t, req)
	if feb.MasterID != jan.MasterID {
		t.Fatalf("february fund master = %d, want %d", feb.MasterID, jan.MasterID)
	}

	// One fund per master per period.
	dup := fundReq("Vacation Again", 2, 2026, 20000, 1)
	dup.MasterID = jan.MasterID
	_, err := e.budgets.CreateBudget(context.Background(), dup)
	wantKind(t, err, core.KindConflict)

	missing := fundReq("Ghost", 3, 2026, 20000, 1)
	missing.MasterID = 9999
	_, err = e.budgets.CreateBudget(context.Background(), missing)
	wantKind(t, err, core.KindNotFound)
}

func TestDeleteBudgetRemovesEmptyMaster(t *testing.T) {
	e := newEngine()
	fund := e.mustCreate(t, fundReq("Vacation", 1, 2026, 20000, 1))
	if err := e.budgets.DeleteBudget(context.Background(), fund.ID); err != nil {
		t.Fatalf("delete budget: %v", err)
	}
	_, err := e.store.GetMaster(context.Background(), fund.MasterID)
	wantKind(t, err, core.KindNotFound)
}

func TestDeleteBudgetKeepsSharedMaster(t *testing.T) {
	e := newEngine()
	jan := e.mustCreate(t, fundReq("Vacation", 1, 2026, 20000, 1))
	req := fundReq("Vacation", 2, 2026, 20000, 1)
	req.MasterID = jan.MasterID
	e.mustCreate(t, req)

	if err := e.budgets.DeleteBudget(context.Background(), jan.ID); err != nil {
		t.Fatalf("delete budget: %v", err)
	}
	if _, err := e.store.GetMaster(context.Background(), jan.MasterID); err != nil {
		t.Fatalf("master with remaining fund deleted: %v", err)
	}
}

func TestGetAllBudgetsBalanceScenario(t *testing.T) {
	e := newEngine()
	e.mustCreate(t, incomeReq("Salary", 1, 2026, 300000))
	e.mustCreate(t, expenseReq("Rent", 1, 2026, 120000))
	e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	fund := e.mustCreate(t, fundReq("Vacation", 1, 2026, 20000, 1))
	e.setMonthAmount(t, fund.ID, 20000)

	month, err := e.budgets.GetAllBudgets(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("get all budgets: %v", err)
	}
	if got := month.ExpectedBalance(); got.Cents != 130000 {
		t.Fatalf("expected balance = %s, want 1300.00", got)
	}

	summary := month.Summarize()
	if summary.TotalIncome.Cents != 300000 {
		t.Fatalf("total income = %s, want 3000.00", summary.TotalIncome)
	}
	if summary.TotalAllocated.Cents != 20000 {
		t.Fatalf("total allocated = %s, want 200.00", summary.TotalAllocated)
	}
}

func TestGetAllBudgetsFundViewCarriesMasterState(t *testing.T) {
	e := newEngine()
	fund := e.mustCreate(t, fundReq("Vacation", 1, 2026, 20000, 1))
	e.setMonthAmount(t, fund.ID, 20000)
	e.mustSpend(t, fund.ID, -5000, 1, 2026)

	month, err := e.budgets.GetAllBudgets(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("get all budgets: %v", err)
	}
	if len(month.Funds) != 1 {
		t.Fatalf("funds = %d, want 1", len(month.Funds))
	}
	view := month.Funds[0]
	if view.MasterBalance.Cents != 15000 {
		t.Fatalf("master balance = %s, want 150.00", view.MasterBalance)
	}
	if view.MasterName != "Vacation" {
		t.Fatalf("master name = %q, want Vacation", view.MasterName)
	}
	if view.AmountAfterTransactions.Cents != 15000 {
		t.Fatalf("amount after transactions = %s, want 150.00", view.AmountAfterTransactions)
	}
}

func TestBudgetNames(t *testing.T) {
	e := newEngine()
	e.mustCreate(t, expenseReq("Rent", 1, 2026, 120000))
	fund := e.mustCreate(t, fundReq("Vacation", 1, 2026, 20000, 1))

	names, err := e.budgets.BudgetNames(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("budget names: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %d, want 2", len(names))
	}
	for _, n := range names {
		if n.Name == "Vacation" && n.MasterID != fund.MasterID {
			t.Fatalf("fund entry missing master id: %+v", n)
		}
		if n.Name == "Rent" && n.MasterID != 0 {
			t.Fatalf("expense entry has master id: %+v", n)
		}
	}
}
