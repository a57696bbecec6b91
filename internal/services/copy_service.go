package services

import (
	"context"
	"fmt"
	"log/slog"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// CopyService duplicates a month's full envelope set into another month.
type CopyService struct {
	store  ledger.Store
	events EventPublisher
}

func NewCopyService(store ledger.Store, events EventPublisher) *CopyService {
	return &CopyService{store: store, events: events}
}

// CopiedBudgets counts what a copy created, per kind.
type CopiedBudgets struct {
	Income   int `json:"income"`
	Expense  int `json:"expense"`
	Flexible int `json:"flexible"`
	Fund     int `json:"fund"`
}

// CopyResult reports a completed copy.
type CopyResult struct {
	Copied      CopiedBudgets `json:"copied_budgets"`
	SourceMonth int           `json:"source_month"`
	SourceYear  int           `json:"source_year"`
}

// Copy clones the source period's envelopes into an empty target period.
// Configuration fields are copied; activity fields start fresh (fund
// month_amount is zeroed). Fund budgets keep their source master id, so a
// savings goal is never forked into two identities by a copy. When no source
// is given the previous calendar month is used; smarter backward/forward
// discovery is the caller's concern.
func (s *CopyService) Copy(ctx context.Context, targetMonth, targetYear int, sourceMonth, sourceYear int) (CopyResult, error) {
	if err := validatePeriod(targetMonth, targetYear); err != nil {
		return CopyResult{}, err
	}
	if sourceMonth == 0 || sourceYear == 0 {
		sourceMonth, sourceYear = core.PreviousPeriod(targetMonth, targetYear)
	}
	if err := validatePeriod(sourceMonth, sourceYear); err != nil {
		return CopyResult{}, err
	}
	if sourceMonth == targetMonth && sourceYear == targetYear {
		return CopyResult{}, core.Validationf("source and target are both %d/%d", targetMonth, targetYear)
	}

	result := CopyResult{SourceMonth: sourceMonth, SourceYear: sourceYear}
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		existing, err := tx.ListBudgets(ctx, targetMonth, targetYear)
		if err != nil {
			return fmt.Errorf("list budgets %d/%d: %w", targetMonth, targetYear, err)
		}
		if len(existing) > 0 {
			return core.Conflictf("target period %d/%d already has %d budgets", targetMonth, targetYear, len(existing))
		}

		source, err := tx.ListBudgets(ctx, sourceMonth, sourceYear)
		if err != nil {
			return fmt.Errorf("list budgets %d/%d: %w", sourceMonth, sourceYear, err)
		}
		if len(source) == 0 {
			return core.NotFoundf("no budgets found in source period %d/%d", sourceMonth, sourceYear)
		}

		for _, b := range source {
			clone := b
			clone.ID = 0
			clone.Month = targetMonth
			clone.Year = targetYear
			// Activity never copies: the target starts with zero actuals.
			clone.MonthAmount = core.Money{}
			if _, err := tx.CreateBudget(ctx, clone); err != nil {
				return fmt.Errorf("copy budget %q: %w", b.Name, err)
			}
			switch b.Kind {
			case core.KindIncome:
				result.Copied.Income++
			case core.KindExpense:
				result.Copied.Expense++
			case core.KindFlexible:
				result.Copied.Flexible++
			case core.KindFund:
				result.Copied.Fund++
			}
		}
		return nil
	})
	if err != nil {
		return CopyResult{}, err
	}

	slog.InfoContext(ctx, "Budgets copied",
		"source_month", sourceMonth,
		"source_year", sourceYear,
		"target_month", targetMonth,
		"target_year", targetYear,
		"income", result.Copied.Income,
		"expense", result.Copied.Expense,
		"flexible", result.Copied.Flexible,
		"fund", result.Copied.Fund)
	publishEvent(ctx, s.events, "budgets_copied", targetMonth, targetYear)
	return result, nil
}
