package core

// BudgetView is a budget enriched with the period's derived figures. Services
// assemble it fresh from the store on every request; nothing here is cached.
type BudgetView struct {
	Budget
	TransactionSum Money // signed, line-item aware
	Carryover      Money // cumulative surplus/deficit from prior months
	MasterBalance  Money // funds only: derived balance of the whole family
	MasterName     string

	// AmountAfterTransactions is expected_amount + transaction_sum for
	// income/expense/flexible, and month_amount + transaction_sum for funds.
	AmountAfterTransactions Money
}

// MonthBudgets is the full envelope set for one month, split by kind.
type MonthBudgets struct {
	Month     int
	Year      int
	Incomes   []BudgetView
	Expenses  []BudgetView
	Flexibles []BudgetView
	Funds     []BudgetView
}

// ExpectedBalance is the planned household balance for the period:
//
//	Σ expected(income) − Σ expected(expense) − Σ expected(flexible)
//	+ Σ carryover − Σ month_amount(fund)
//
// Fund allocations reduce the balance (earmarked money is unavailable) but
// fund transactions never enter it.
func (m MonthBudgets) ExpectedBalance() Money {
	var total Money
	for _, b := range m.Incomes {
		total = total.Add(b.ExpectedAmount)
	}
	for _, b := range m.Expenses {
		total = total.Sub(b.ExpectedAmount)
	}
	for _, b := range m.Flexibles {
		total = total.Sub(b.ExpectedAmount)
	}
	total = total.Add(m.totalCarryover()).Sub(m.totalFundAllocation())
	return total
}

// ActualBalance is the realized household balance: signed transaction sums
// replace expected amounts. Expense sums are already negative, so every kind
// is added as-is.
func (m MonthBudgets) ActualBalance() Money {
	var total Money
	for _, b := range m.Incomes {
		total = total.Add(b.TransactionSum)
	}
	for _, b := range m.Expenses {
		total = total.Add(b.TransactionSum)
	}
	for _, b := range m.Flexibles {
		total = total.Add(b.TransactionSum)
	}
	total = total.Add(m.totalCarryover()).Sub(m.totalFundAllocation())
	return total
}

func (m MonthBudgets) totalCarryover() Money {
	var total Money
	for _, group := range [][]BudgetView{m.Incomes, m.Expenses, m.Flexibles, m.Funds} {
		for _, b := range group {
			total = total.Add(b.Carryover)
		}
	}
	return total
}

func (m MonthBudgets) totalFundAllocation() Money {
	var total Money
	for _, b := range m.Funds {
		total = total.Add(b.MonthAmount)
	}
	return total
}

// MonthSummary is the compact export row the worker writes to the summary
// backend after a budget change.
type MonthSummary struct {
	Month           int
	Year            int
	ExpectedBalance Money
	ActualBalance   Money
	TotalIncome     Money // signed transaction sum over income envelopes
	TotalSpent      Money // signed transaction sum over expense + flexible
	TotalAllocated  Money // current month fund allocations
}

// Summarize derives the export row from the assembled month.
func (m MonthBudgets) Summarize() MonthSummary {
	var income, spent Money
	for _, b := range m.Incomes {
		income = income.Add(b.TransactionSum)
	}
	for _, b := range m.Expenses {
		spent = spent.Add(b.TransactionSum)
	}
	for _, b := range m.Flexibles {
		spent = spent.Add(b.TransactionSum)
	}
	return MonthSummary{
		Month:           m.Month,
		Year:            m.Year,
		ExpectedBalance: m.ExpectedBalance(),
		ActualBalance:   m.ActualBalance(),
		TotalIncome:     income,
		TotalSpent:      spent,
		TotalAllocated:  m.totalFundAllocation(),
	}
}
