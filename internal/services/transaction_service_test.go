package services

import (
	"context"
	"testing"
	"time"

	"envelope/internal/core"
)

func TestCreateTransactionRequiresDate(t *testing.T) {
	e := newEngine()
	_, err := e.txns.CreateTransaction(context.Background(), CreateTransactionRequest{
		Amount: core.Cents(-1000),
	})
	wantKind(t, err, core.KindValidation)
}

func TestCreateTransactionChecksBudget(t *testing.T) {
	e := newEngine()
	_, err := e.txns.CreateTransaction(context.Background(), CreateTransactionRequest{
		Amount:   core.Cents(-1000),
		Date:     time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		BudgetID: 9999,
	})
	wantKind(t, err, core.KindNotFound)
}

func TestAssignToBudgetMovesSums(t *testing.T) {
	e := newEngine()
	groceries := e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	dining := e.mustCreate(t, flexibleReq("Dining", 1, 2026, 10000))
	txn := e.mustSpend(t, groceries.ID, -4500, 1, 2026)

	if err := e.txns.AssignToBudget(context.Background(), txn.ID, dining.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	sums, err := e.store.TransactionSums(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("sums: %v", err)
	}
	if sums[groceries.ID].Cents != 0 || sums[dining.ID].Cents != -4500 {
		t.Fatalf("sums after reassignment = %v", sums)
	}

	// Zero unassigns.
	if err := e.txns.AssignToBudget(context.Background(), txn.ID, 0); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	sums, err = e.store.TransactionSums(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("sums: %v", err)
	}
	if sums[dining.ID].Cents != 0 {
		t.Fatalf("unassigned transaction still counted: %v", sums)
	}
}

func TestMarkTypeExcludesFromSums(t *testing.T) {
	e := newEngine()
	groceries := e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	txn := e.mustSpend(t, groceries.ID, -4500, 1, 2026)

	err := e.txns.MarkType(context.Background(), txn.ID, "mystery", false)
	wantKind(t, err, core.KindValidation)

	if err := e.txns.MarkType(context.Background(), txn.ID, core.TypeTransfer, true); err != nil {
		t.Fatalf("mark type: %v", err)
	}
	sums, err := e.store.TransactionSums(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("sums: %v", err)
	}
	if sums[groceries.ID].Cents != 0 {
		t.Fatalf("excluded transaction still counted: %v", sums)
	}
}

func TestCreateBreakdownValidatesSum(t *testing.T) {
	e := newEngine()
	groceries := e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	txn := e.mustSpend(t, groceries.ID, -9000, 1, 2026)

	_, err := e.txns.CreateBreakdown(context.Background(), txn.ID, []BreakdownItem{
		{Amount: core.Cents(-6000), BudgetID: groceries.ID},
		{Amount: core.Cents(-2000), BudgetID: groceries.ID},
	})
	wantKind(t, err, core.KindValidation)

	_, err = e.txns.CreateBreakdown(context.Background(), txn.ID, nil)
	wantKind(t, err, core.KindValidation)
}

func TestCreateBreakdownReplacesExisting(t *testing.T) {
	e := newEngine()
	groceries := e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	household := e.mustCreate(t, flexibleReq("Household", 1, 2026, 10000))
	txn := e.mustSpend(t, groceries.ID, -9000, 1, 2026)

	first, err := e.txns.CreateBreakdown(context.Background(), txn.ID, []BreakdownItem{
		{Amount: core.Cents(-6000), BudgetID: groceries.ID},
		{Amount: core.Cents(-3000), BudgetID: household.ID},
	})
	if err != nil {
		t.Fatalf("first breakdown: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first breakdown = %d items, want 2", len(first))
	}

	second, err := e.txns.CreateBreakdown(context.Background(), txn.ID, []BreakdownItem{
		{Amount: core.Cents(-9000), BudgetID: household.ID},
	})
	if err != nil {
		t.Fatalf("second breakdown: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second breakdown = %d items, want 1", len(second))
	}

	items, err := e.store.ListLineItems(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("list line items: %v", err)
	}
	if len(items) != 1 || items[0].BudgetID != household.ID {
		t.Fatalf("stored breakdown = %+v", items)
	}

	// Split transactions count by line item, not by parent budget.
	sums, err := e.store.TransactionSums(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("sums: %v", err)
	}
	if sums[groceries.ID].Cents != 0 || sums[household.ID].Cents != -9000 {
		t.Fatalf("sums after breakdown = %v", sums)
	}
}

func TestUpdateLineItemRevalidatesSum(t *testing.T) {
	e := newEngine()
	groceries := e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	txn := e.mustSpend(t, groceries.ID, -9000, 1, 2026)
	items, err := e.txns.CreateBreakdown(context.Background(), txn.ID, []BreakdownItem{
		{Amount: core.Cents(-6000), BudgetID: groceries.ID},
		{Amount: core.Cents(-3000), BudgetID: groceries.ID},
	})
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}

	bad := items[0]
	bad.Amount = core.Cents(-1000)
	err = e.txns.UpdateLineItem(context.Background(), bad)
	wantKind(t, err, core.KindValidation)

	// Reassigning a line without touching its amount is fine.
	household := e.mustCreate(t, flexibleReq("Household", 1, 2026, 10000))
	moved := items[1]
	moved.BudgetID = household.ID
	if err := e.txns.UpdateLineItem(context.Background(), moved); err != nil {
		t.Fatalf("reassign line item: %v", err)
	}
	sums, err := e.store.TransactionSums(context.Background(), 1, 2026)
	if err != nil {
		t.Fatalf("sums: %v", err)
	}
	if sums[household.ID].Cents != -3000 {
		t.Fatalf("reassigned line not counted: %v", sums)
	}
}

func TestDeleteLastLineItemUnsplits(t *testing.T) {
	e := newEngine()
	groceries := e.mustCreate(t, flexibleReq("Groceries", 1, 2026, 30000))
	txn := e.mustSpend(t, groceries.ID, -9000, 1, 2026)
	items, err := e.txns.CreateBreakdown(context.Background(), txn.ID, []BreakdownItem{
		{Amount: core.Cents(-9000), BudgetID: groceries.ID},
	})
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}

	if err := e.txns.DeleteLineItem(context.Background(), items[0].ID); err != nil {
		t.Fatalf("delete line item: %v", err)
	}
	got, err := e.store.GetTransaction(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.IsSplit {
		t.Fatalf("transaction still marked split after last line item removed")
	}
}
