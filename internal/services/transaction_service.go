package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// TransactionService covers the engine-side slice of transaction handling:
// manual entry, envelope assignment, type marking, and line-item breakdowns.
// Bank-sync ingestion lives outside this service.
type TransactionService struct {
	store  ledger.Store
	events EventPublisher
}

func NewTransactionService(store ledger.Store, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, events: events}
}

// CreateTransactionRequest is a manual transaction entry.
type CreateTransactionRequest struct {
	Amount      core.Money
	Description string
	Payee       string
	Date        time.Time
	BudgetID    int64
}

func (s *TransactionService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	if req.Date.IsZero() {
		return core.Transaction{}, core.Validationf("transaction date is required")
	}
	txn := core.Transaction{
		Amount:      req.Amount,
		Description: req.Description,
		Payee:       req.Payee,
		Date:        req.Date,
		BudgetID:    req.BudgetID,
	}
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if txn.BudgetID != 0 {
			if _, err := tx.GetBudget(ctx, txn.BudgetID); err != nil {
				return err
			}
		}
		id, err := tx.CreateTransaction(ctx, txn)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		txn.ID = id
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", txn.ID,
		"amount", txn.Amount.String(),
		"budget_id", txn.BudgetID)
	return txn, nil
}

// AssignToBudget links a transaction to an envelope (0 unassigns). Fund
// month_amount is never touched here: fund transactions are tracked
// separately and only move the derived master balance.
func (s *TransactionService) AssignToBudget(ctx context.Context, transactionID, budgetID int64) error {
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.GetTransaction(ctx, transactionID); err != nil {
			return err
		}
		if budgetID != 0 {
			if _, err := tx.GetBudget(ctx, budgetID); err != nil {
				return err
			}
		}
		return tx.AssignTransaction(ctx, transactionID, budgetID)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction assigned",
		"transaction_id", transactionID, "budget_id", budgetID)
	return nil
}

// MarkType tags a transaction and optionally excludes it from budget sums.
func (s *TransactionService) MarkType(ctx context.Context, transactionID int64, typ core.TransactionType, excludeFromBudget bool) error {
	if !typ.Valid() {
		return core.Validationf("unknown transaction type %q", typ)
	}
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.GetTransaction(ctx, transactionID); err != nil {
			return err
		}
		return tx.SetTransactionType(ctx, transactionID, typ, excludeFromBudget)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction type marked",
		"transaction_id", transactionID,
		"type", string(typ),
		"exclude_from_budget", excludeFromBudget)
	return nil
}

// BreakdownItem is one line of a split.
type BreakdownItem struct {
	Amount      core.Money
	Description string
	BudgetID    int64
}

// CreateBreakdown splits a transaction into line items, replacing any
// existing breakdown. Line amounts must sum exactly to the parent amount.
func (s *TransactionService) CreateBreakdown(ctx context.Context, transactionID int64, items []BreakdownItem) ([]core.LineItem, error) {
	if len(items) == 0 {
		return nil, core.Validationf("breakdown needs at least one line item")
	}
	var total core.Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}

	var created []core.LineItem
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if total != txn.Amount {
			return core.Validationf("line items sum to %s, transaction amount is %s", total, txn.Amount)
		}
		for _, it := range items {
			if it.BudgetID != 0 {
				if _, err := tx.GetBudget(ctx, it.BudgetID); err != nil {
					return err
				}
			}
		}

		existing, err := tx.ListLineItems(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("list line items: %w", err)
		}
		for _, li := range existing {
			if err := tx.DeleteLineItem(ctx, li.ID); err != nil {
				return err
			}
		}

		for _, it := range items {
			li := core.LineItem{
				TransactionID: transactionID,
				Amount:        it.Amount,
				Description:   it.Description,
				BudgetID:      it.BudgetID,
			}
			id, err := tx.CreateLineItem(ctx, li)
			if err != nil {
				return fmt.Errorf("create line item: %w", err)
			}
			li.ID = id
			created = append(created, li)
		}
		return tx.SetTransactionSplit(ctx, transactionID, true)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction breakdown created",
		"transaction_id", transactionID, "line_items", len(created))
	return created, nil
}

// UpdateLineItem edits one line of a split; the new line amounts must still
// sum to the parent amount.
func (s *TransactionService) UpdateLineItem(ctx context.Context, li core.LineItem) error {
	return s.store.WithTx(ctx, func(tx ledger.Tx) error {
		existing, err := tx.GetLineItem(ctx, li.ID)
		if err != nil {
			return err
		}
		if li.BudgetID != 0 {
			if _, err := tx.GetBudget(ctx, li.BudgetID); err != nil {
				return err
			}
		}
		txn, err := tx.GetTransaction(ctx, existing.TransactionID)
		if err != nil {
			return err
		}
		siblings, err := tx.ListLineItems(ctx, existing.TransactionID)
		if err != nil {
			return fmt.Errorf("list line items: %w", err)
		}
		var total core.Money
		for _, sib := range siblings {
			if sib.ID == li.ID {
				total = total.Add(li.Amount)
			} else {
				total = total.Add(sib.Amount)
			}
		}
		if total != txn.Amount {
			return core.Validationf("line items would sum to %s, transaction amount is %s", total, txn.Amount)
		}
		return tx.UpdateLineItem(ctx, li)
	})
}

// DeleteLineItem removes one line; removing the last line un-splits the
// parent transaction.
func (s *TransactionService) DeleteLineItem(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(tx ledger.Tx) error {
		li, err := tx.GetLineItem(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteLineItem(ctx, id); err != nil {
			return err
		}
		remaining, err := tx.ListLineItems(ctx, li.TransactionID)
		if err != nil {
			return fmt.Errorf("list line items: %w", err)
		}
		if len(remaining) == 0 {
			return tx.SetTransactionSplit(ctx, li.TransactionID, false)
		}
		return nil
	})
}
