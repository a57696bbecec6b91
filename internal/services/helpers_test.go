package services

import (
	"context"
	"testing"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
	"envelope/internal/ledger/memory"
)

// engine bundles every service over one in-memory store.
type engine struct {
	store      *memory.Store
	budgets    *BudgetService
	funds      *FundService
	increments *IncrementService
	copier     *CopyService
	txns       *TransactionService
}

func newEngine() *engine {
	store := memory.New()
	return &engine{
		store:      store,
		budgets:    NewBudgetService(store, nil),
		funds:      NewFundService(store, nil),
		increments: NewIncrementService(store, nil),
		copier:     NewCopyService(store, nil),
		txns:       NewTransactionService(store, nil),
	}
}

func (e *engine) mustCreate(t *testing.T, req CreateBudgetRequest) core.Budget {
	t.Helper()
	b, err := e.budgets.CreateBudget(context.Background(), req)
	if err != nil {
		t.Fatalf("create budget %q: %v", req.Name, err)
	}
	return b
}

func (e *engine) mustSpend(t *testing.T, budgetID, cents int64, month, year int) core.Transaction {
	t.Helper()
	txn, err := e.txns.CreateTransaction(context.Background(), CreateTransactionRequest{
		Amount:      core.Cents(cents),
		Description: "test transaction",
		Date:        time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC),
		BudgetID:    budgetID,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return txn
}

func incomeReq(name string, month, year int, expectedCents int64) CreateBudgetRequest {
	return CreateBudgetRequest{
		Name: name, Type: core.KindIncome, Month: month, Year: year,
		Fixed: true, ExpectedAmount: core.Cents(expectedCents),
	}
}

func expenseReq(name string, month, year int, expectedCents int64) CreateBudgetRequest {
	return CreateBudgetRequest{
		Name: name, Type: core.KindExpense, Month: month, Year: year,
		Fixed: true, ExpectedAmount: core.Cents(expectedCents),
	}
}

func flexibleReq(name string, month, year int, expectedCents int64) CreateBudgetRequest {
	return CreateBudgetRequest{
		Name: name, Type: core.KindFlexible, Month: month, Year: year,
		ExpectedAmount: core.Cents(expectedCents),
	}
}

func fundReq(name string, month, year int, incrementCents int64, priority int) CreateBudgetRequest {
	return CreateBudgetRequest{
		Name: name, Type: core.KindFund, Month: month, Year: year,
		Increment: core.Cents(incrementCents), Priority: priority,
	}
}

// setMonthAmount bumps a fund's allocation directly, simulating prior
// increment passes without running one.
func (e *engine) setMonthAmount(t *testing.T, fundID, cents int64) {
	t.Helper()
	err := e.store.WithTx(context.Background(), func(tx ledger.Tx) error {
		return tx.SetFundMonthAmount(context.Background(), fundID, core.Cents(cents))
	})
	if err != nil {
		t.Fatalf("set month amount: %v", err)
	}
}

func wantKind(t *testing.T, err error, kind core.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := core.KindOf(err); got != kind {
		t.Fatalf("expected %v error, got %v (%v)", kind, got, err)
	}
}
