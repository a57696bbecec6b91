package core

import "testing"

func view(kind BudgetKind, expected, txnSum, carryover, monthAmount int64) BudgetView {
	return BudgetView{
		Budget: Budget{
			Kind:           kind,
			ExpectedAmount: Cents(expected),
			MonthAmount:    Cents(monthAmount),
		},
		TransactionSum: Cents(txnSum),
		Carryover:      Cents(carryover),
	}
}

func TestExpectedBalanceScenario(t *testing.T) {
	// Income 3000, expense 1200, flexible 300, one fund allocating 200,
	// no carryover: expected balance 3000-1200-300-200 = 1300.
	m := MonthBudgets{
		Incomes:   []BudgetView{view(KindIncome, 300000, 0, 0, 0)},
		Expenses:  []BudgetView{view(KindExpense, 120000, 0, 0, 0)},
		Flexibles: []BudgetView{view(KindFlexible, 30000, 0, 0, 0)},
		Funds:     []BudgetView{view(KindFund, 0, 0, 0, 20000)},
	}
	if got := m.ExpectedBalance(); got.Cents != 130000 {
		t.Fatalf("expected balance = %s, want 1300.00", got)
	}
}

func TestActualBalanceUsesSignedSums(t *testing.T) {
	m := MonthBudgets{
		Incomes:   []BudgetView{view(KindIncome, 300000, 250000, 0, 0)},
		Expenses:  []BudgetView{view(KindExpense, 120000, -110000, 0, 0)},
		Flexibles: []BudgetView{view(KindFlexible, 30000, -20000, 0, 0)},
		Funds:     []BudgetView{view(KindFund, 0, 0, 0, 20000)},
	}
	// 2500 - 1100 - 200 - 200 = 1000
	if got := m.ActualBalance(); got.Cents != 100000 {
		t.Fatalf("actual balance = %s, want 1000.00", got)
	}
}

func TestBalanceIncludesAllCarryover(t *testing.T) {
	m := MonthBudgets{
		Incomes:  []BudgetView{view(KindIncome, 100000, 0, 5000, 0)},
		Expenses: []BudgetView{view(KindExpense, 50000, 0, -2000, 0)},
		Funds:    []BudgetView{view(KindFund, 0, 0, -10000, 10000)},
	}
	// 1000 - 500 + (50 - 20 - 100) - 100 = 330
	if got := m.ExpectedBalance(); got.Cents != 33000 {
		t.Fatalf("expected balance = %s, want 330.00", got)
	}
}

func TestFundTransactionsNeverEnterBalance(t *testing.T) {
	base := MonthBudgets{
		Incomes: []BudgetView{view(KindIncome, 100000, 100000, 0, 0)},
		Funds:   []BudgetView{view(KindFund, 0, 0, 0, 20000)},
	}
	withdrawn := MonthBudgets{
		Incomes: []BudgetView{view(KindIncome, 100000, 100000, 0, 0)},
		Funds:   []BudgetView{view(KindFund, 0, -15000, 0, 20000)},
	}
	if base.ActualBalance() != withdrawn.ActualBalance() {
		t.Fatalf("fund transaction changed the household balance: %s vs %s",
			base.ActualBalance(), withdrawn.ActualBalance())
	}
	if base.ExpectedBalance() != withdrawn.ExpectedBalance() {
		t.Fatalf("fund transaction changed the expected balance")
	}
}

func TestBalanceIdempotent(t *testing.T) {
	m := MonthBudgets{
		Incomes:  []BudgetView{view(KindIncome, 300000, 290000, 1500, 0)},
		Expenses: []BudgetView{view(KindExpense, 120000, -118000, -300, 0)},
		Funds:    []BudgetView{view(KindFund, 0, -5000, -40000, 20000)},
	}
	first, second := m.ActualBalance(), m.ActualBalance()
	if first != second {
		t.Fatalf("recomputation differed: %s vs %s", first, second)
	}
	if m.ExpectedBalance() != m.ExpectedBalance() {
		t.Fatalf("expected balance recomputation differed")
	}
}

func TestSummarize(t *testing.T) {
	m := MonthBudgets{
		Month:     3,
		Year:      2026,
		Incomes:   []BudgetView{view(KindIncome, 300000, 280000, 0, 0)},
		Expenses:  []BudgetView{view(KindExpense, 120000, -90000, 0, 0)},
		Flexibles: []BudgetView{view(KindFlexible, 30000, -10000, 0, 0)},
		Funds:     []BudgetView{view(KindFund, 0, 0, 0, 20000)},
	}
	s := m.Summarize()
	if s.TotalIncome.Cents != 280000 {
		t.Fatalf("TotalIncome = %s", s.TotalIncome)
	}
	if s.TotalSpent.Cents != -100000 {
		t.Fatalf("TotalSpent = %s", s.TotalSpent)
	}
	if s.TotalAllocated.Cents != 20000 {
		t.Fatalf("TotalAllocated = %s", s.TotalAllocated)
	}
	if s.ActualBalance != m.ActualBalance() || s.ExpectedBalance != m.ExpectedBalance() {
		t.Fatalf("summary balances diverge from the evaluator")
	}
}
