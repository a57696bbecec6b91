// Package ledger defines the store ports the engine reads and writes through.
// All authoritative state lives behind these interfaces; services never cache
// derived values across requests.
package ledger

import (
	"context"

	"envelope/internal/core"
)

// Reader is the read side of the ledger store. Reads are pure functions of
// committed state and may run concurrently without locks.
type Reader interface {
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	// ListBudgets returns every budget for the period, all kinds.
	ListBudgets(ctx context.Context, month, year int) ([]core.Budget, error)
	// ListBudgetsNamed returns every period's budgets with the given name.
	ListBudgetsNamed(ctx context.Context, name string) ([]core.Budget, error)
	// ListFundsByMaster returns every fund budget linked to the master,
	// across all periods, ordered by (year, month) ascending.
	ListFundsByMaster(ctx context.Context, masterID int64) ([]core.Budget, error)

	GetMaster(ctx context.Context, id int64) (core.FundMaster, error)
	ListMasters(ctx context.Context) ([]core.FundMaster, error)

	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	GetLineItem(ctx context.Context, id int64) (core.LineItem, error)
	ListLineItems(ctx context.Context, transactionID int64) ([]core.LineItem, error)

	// TransactionSums returns the signed transaction sum per budget for the
	// period, counting line items instead of split parents and skipping
	// transactions flagged exclude_from_budget.
	TransactionSums(ctx context.Context, month, year int) (map[int64]core.Money, error)
	// BudgetTransactionSum returns the all-time signed transaction sum for
	// one budget, line-item aware, with no exclusion filter. Master balances
	// derive from it, so synthetic adjustment entries must count here.
	BudgetTransactionSum(ctx context.Context, budgetID int64) (core.Money, error)
}

// Writer is the mutation side, only reachable inside a transaction.
type Writer interface {
	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
	DeleteBudget(ctx context.Context, id int64) error
	SetFundMonthAmount(ctx context.Context, fundID int64, amount core.Money) error
	SetFundMaster(ctx context.Context, fundID, masterID int64) error
	// RepointFunds moves every fund from one master to another and returns
	// how many were moved.
	RepointFunds(ctx context.Context, fromMaster, toMaster int64) (int, error)
	// SeverMasterLinks clears the master reference on every linked fund.
	SeverMasterLinks(ctx context.Context, masterID int64) error

	CreateMaster(ctx context.Context, m core.FundMaster) (int64, error)
	DeleteMaster(ctx context.Context, id int64) error

	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	AssignTransaction(ctx context.Context, transactionID, budgetID int64) error
	SetTransactionType(ctx context.Context, transactionID int64, t core.TransactionType, excludeFromBudget bool) error
	SetTransactionSplit(ctx context.Context, transactionID int64, split bool) error

	CreateLineItem(ctx context.Context, li core.LineItem) (int64, error)
	UpdateLineItem(ctx context.Context, li core.LineItem) error
	DeleteLineItem(ctx context.Context, id int64) error
}

// Tx is a single atomic unit against the store.
type Tx interface {
	Reader
	Writer
}

// Store is the full ledger port. WithTx runs fn inside one transaction:
// everything commits or nothing does. Concurrent transactions touching the
// same fund family are serialized by the implementation.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
