// Package services implements the fund allocation and carryover engine:
// month assembly, carryover, fund master lifecycle, increment application,
// and period copying. Services are request-scoped and stateless; every
// calculation re-derives its inputs from the ledger store.
package services

import (
	"context"
	"fmt"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// masterBalance derives a fund master's balance from its whole family:
// Σ(month_amount + transaction sum) over every linked fund. This is the only
// balance definition; nothing stores it.
func masterBalance(ctx context.Context, r ledger.Reader, masterID int64) (core.Money, error) {
	funds, err := r.ListFundsByMaster(ctx, masterID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list funds for master %d: %w", masterID, err)
	}
	var total core.Money
	for _, f := range funds {
		txnSum, err := r.BudgetTransactionSum(ctx, f.ID)
		if err != nil {
			return core.Money{}, fmt.Errorf("transaction sum for fund %d: %w", f.ID, err)
		}
		total = total.Add(f.MonthAmount).Add(txnSum)
	}
	return total, nil
}

// carryoverFor computes each current-period budget's carryover: the cumulative
// net contribution of every prior month in the same lineage.
//
// Lineage is the budget name for income/expense/flexible and the fund master
// for funds. Non-fund months contribute their signed transaction sum; fund
// months contribute -month_amount, and fund transactions are ignored (they
// move the master balance, never the household pool).
func carryoverFor(ctx context.Context, r ledger.Reader, budgets []core.Budget, month, year int) (map[int64]core.Money, error) {
	// Period-level sums are fetched once per distinct prior period.
	type period struct{ month, year int }
	sumsByPeriod := make(map[period]map[int64]core.Money)
	periodSums := func(m, y int) (map[int64]core.Money, error) {
		p := period{m, y}
		if cached, ok := sumsByPeriod[p]; ok {
			return cached, nil
		}
		sums, err := r.TransactionSums(ctx, m, y)
		if err != nil {
			return nil, fmt.Errorf("transaction sums %d/%d: %w", m, y, err)
		}
		sumsByPeriod[p] = sums
		return sums, nil
	}

	out := make(map[int64]core.Money, len(budgets))
	for _, b := range budgets {
		var total core.Money
		if b.IsFund() {
			if b.MasterID == 0 {
				out[b.ID] = core.Money{}
				continue
			}
			family, err := r.ListFundsByMaster(ctx, b.MasterID)
			if err != nil {
				return nil, fmt.Errorf("list funds for master %d: %w", b.MasterID, err)
			}
			for _, prev := range family {
				if prev.PeriodBefore(month, year) {
					total = total.Sub(prev.MonthAmount)
				}
			}
			out[b.ID] = total
			continue
		}

		lineage, err := r.ListBudgetsNamed(ctx, b.Name)
		if err != nil {
			return nil, fmt.Errorf("list budgets named %q: %w", b.Name, err)
		}
		for _, prev := range lineage {
			if prev.Kind != b.Kind || !prev.PeriodBefore(month, year) {
				continue
			}
			sums, err := periodSums(prev.Month, prev.Year)
			if err != nil {
				return nil, err
			}
			total = total.Add(sums[prev.ID])
		}
		out[b.ID] = total
	}
	return out, nil
}

// buildMonth assembles the full MonthBudgets view from pre-fetched budgets and
// transaction sums, deriving carryover and master balances from r.
func buildMonth(ctx context.Context, r ledger.Reader, month, year int, budgets []core.Budget, sums map[int64]core.Money) (core.MonthBudgets, error) {
	out := core.MonthBudgets{Month: month, Year: year}

	carryover, err := carryoverFor(ctx, r, budgets, month, year)
	if err != nil {
		return out, err
	}

	masterBalances := make(map[int64]core.Money)
	masterNames := make(map[int64]string)
	for _, b := range budgets {
		if !b.IsFund() || b.MasterID == 0 {
			continue
		}
		if _, ok := masterBalances[b.MasterID]; ok {
			continue
		}
		bal, err := masterBalance(ctx, r, b.MasterID)
		if err != nil {
			return out, err
		}
		masterBalances[b.MasterID] = bal
		if m, err := r.GetMaster(ctx, b.MasterID); err == nil {
			masterNames[b.MasterID] = m.Name
		}
	}

	for _, b := range budgets {
		v := core.BudgetView{
			Budget:         b,
			TransactionSum: sums[b.ID],
			Carryover:      carryover[b.ID],
		}
		switch b.Kind {
		case core.KindFund:
			v.MasterBalance = masterBalances[b.MasterID]
			v.MasterName = masterNames[b.MasterID]
			v.AmountAfterTransactions = b.MonthAmount.Add(v.TransactionSum)
			out.Funds = append(out.Funds, v)
		case core.KindIncome:
			v.AmountAfterTransactions = b.ExpectedAmount.Add(v.TransactionSum)
			out.Incomes = append(out.Incomes, v)
		case core.KindExpense:
			v.AmountAfterTransactions = b.ExpectedAmount.Add(v.TransactionSum)
			out.Expenses = append(out.Expenses, v)
		case core.KindFlexible:
			v.AmountAfterTransactions = b.ExpectedAmount.Add(v.TransactionSum)
			out.Flexibles = append(out.Flexibles, v)
		}
	}
	return out, nil
}

// assembleMonth fetches and builds the month sequentially. Safe on a Tx.
func assembleMonth(ctx context.Context, r ledger.Reader, month, year int) (core.MonthBudgets, error) {
	budgets, err := r.ListBudgets(ctx, month, year)
	if err != nil {
		return core.MonthBudgets{}, fmt.Errorf("list budgets %d/%d: %w", month, year, err)
	}
	sums, err := r.TransactionSums(ctx, month, year)
	if err != nil {
		return core.MonthBudgets{}, fmt.Errorf("transaction sums %d/%d: %w", month, year, err)
	}
	return buildMonth(ctx, r, month, year, budgets, sums)
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return core.Validationf("month %d out of range 1-12", month)
	}
	if year < 1 {
		return core.Validationf("year %d out of range", year)
	}
	return nil
}
