package core

import (
	"time"
)

// BudgetKind discriminates the envelope variants. Funds are the only kind
// carrying allocation, priority, and master linkage.
type BudgetKind string

const (
	KindIncome   BudgetKind = "income"
	KindExpense  BudgetKind = "expense"
	KindFlexible BudgetKind = "flexible"
	KindFund     BudgetKind = "fund"
)

// Valid reports whether k names a known envelope kind.
func (k BudgetKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindFlexible, KindFund:
		return true
	}
	return false
}

// TransactionType tags transactions that need special treatment in budget
// views (transfers, card payments). The zero value means untagged.
type TransactionType string

const (
	TypeNone          TransactionType = ""
	TypeTransfer      TransactionType = "transfer"
	TypeCreditPayment TransactionType = "credit_payment"
	TypeLoanPayment   TransactionType = "loan_payment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeNone, TypeTransfer, TypeCreditPayment, TypeLoanPayment:
		return true
	}
	return false
}

// Budget is one envelope for one month/year. It is a tagged union: the shared
// fields always apply, the amount fields apply to income/expense/flexible, and
// the fund fields apply only when Kind == KindFund.
type Budget struct {
	ID      int64
	Name    string
	Kind    BudgetKind
	Month   int // 1-12
	Year    int
	Enabled bool

	// Income / Expense / Flexible
	Fixed          bool
	ExpectedAmount Money
	Min            *Money
	Max            *Money // for funds: cap on the master balance

	// Fund only
	Priority    int
	Increment   Money
	MonthAmount Money
	MasterID    int64 // 0 = no master (severed or non-fund)
}

// IsFund reports whether the budget carries fund semantics.
func (b Budget) IsFund() bool { return b.Kind == KindFund }

// PeriodBefore reports whether b's month/year strictly precedes month/year.
func (b Budget) PeriodBefore(month, year int) bool {
	if b.Year != year {
		return b.Year < year
	}
	return b.Month < month
}

// Validate checks shared fields plus kind-specific constraints. Returns a
// Validation error on the first problem found.
func (b Budget) Validate() error {
	if b.Name == "" {
		return Validationf("budget name is required")
	}
	if !b.Kind.Valid() {
		return Validationf("unknown budget type %q", b.Kind)
	}
	if b.Month < 1 || b.Month > 12 {
		return Validationf("month %d out of range 1-12", b.Month)
	}
	if b.Year < 1 {
		return Validationf("year %d out of range", b.Year)
	}
	switch b.Kind {
	case KindFund:
		if b.Increment.IsNegative() {
			return Validationf("fund increment %s is negative", b.Increment)
		}
		if b.Max != nil && b.Max.IsNegative() {
			return Validationf("fund max %s is negative", *b.Max)
		}
	default:
		if b.ExpectedAmount.IsNegative() {
			return Validationf("expected amount %s is negative", b.ExpectedAmount)
		}
		if !b.Fixed && b.Min != nil && b.Max != nil && b.Min.Cents > b.Max.Cents {
			return Validationf("min %s exceeds max %s", *b.Min, *b.Max)
		}
	}
	return nil
}

// FundMaster is the cross-month identity of a savings goal. Its balance is
// never stored: it is derived as the sum of month_amount plus transaction sum
// over every fund in the family.
type FundMaster struct {
	ID        int64
	Name      string // may be empty; display falls back to a linked fund's name
	CreatedAt time.Time
}

// Transaction is an external financial event. The engine reads amount, date,
// and budget linkage; ingestion owns the rest.
type Transaction struct {
	ID                int64
	Amount            Money // signed; negative = expense
	Description       string
	Payee             string
	Date              time.Time
	Pending           bool
	BudgetID          int64 // 0 = unassigned
	Type              TransactionType
	ExcludeFromBudget bool
	IsSplit           bool
}

// LineItem is a fractional breakdown of one transaction. When the parent is
// split, engine sums count line items instead of the parent amount.
type LineItem struct {
	ID            int64
	TransactionID int64
	Amount        Money
	Description   string
	BudgetID      int64 // 0 = unassigned
}

// PreviousPeriod returns the calendar month before (month, year).
func PreviousPeriod(month, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}
