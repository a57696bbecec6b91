package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// IncrementService applies each fund's periodic contribution in priority
// order. The whole pass is one store transaction.
type IncrementService struct {
	store  ledger.Store
	events EventPublisher
}

func NewIncrementService(store ledger.Store, events EventPublisher) *IncrementService {
	return &IncrementService{store: store, events: events}
}

// AppliedFund is one successful contribution in a pass.
type AppliedFund struct {
	FundID      int64      `json:"fund_id"`
	FundName    string     `json:"fund_name"`
	AmountAdded core.Money `json:"amount_added"`
	NewAmount   core.Money `json:"new_amount"`
}

// SkippedFund is one fund the pass declined, with the reason.
type SkippedFund struct {
	FundID   int64  `json:"fund_id"`
	FundName string `json:"fund_name"`
	Reason   string `json:"reason"`
}

// IncrementResult reports a whole pass.
type IncrementResult struct {
	Applied         []AppliedFund `json:"applied_funds"`
	Skipped         []SkippedFund `json:"skipped_funds"`
	BalanceBefore   core.Money    `json:"balance_before"`
	BalanceAfter    core.Money    `json:"balance_after"`
	TotalApplied    core.Money    `json:"total_applied"`
	WouldGoNegative bool          `json:"would_go_negative"`
}

const (
	skipZeroIncrement     = "increment is 0"
	skipAtMaximum         = "fund has reached maximum"
	skipInsufficientFunds = "insufficient balance (safe mode)"
)

// Apply runs one increment pass over the period's enabled funds, ascending by
// priority with id as the deterministic tiebreak.
//
// Each fund's increment is first capped by the headroom to its max (derived
// master balance), then, in safe mode, by the running household balance:
// partial contributions are applied rather than skipped when some headroom
// remains, and the balance is re-derived after every application so later
// funds see earlier contributions. Without safe mode the capped increment is
// applied unconditionally; any deficit carries into the next month through
// the ordinary carryover rule.
func (s *IncrementService) Apply(ctx context.Context, month, year int, safeMode bool) (IncrementResult, error) {
	if err := validatePeriod(month, year); err != nil {
		return IncrementResult{}, err
	}

	result := IncrementResult{
		Applied: []AppliedFund{},
		Skipped: []SkippedFund{},
	}
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		monthView, err := assembleMonth(ctx, tx, month, year)
		if err != nil {
			return err
		}
		result.BalanceBefore = monthView.ActualBalance()

		funds := make([]core.BudgetView, 0, len(monthView.Funds))
		for _, f := range monthView.Funds {
			if f.Enabled {
				funds = append(funds, f)
			}
		}
		sort.SliceStable(funds, func(i, j int) bool {
			if funds[i].Priority != funds[j].Priority {
				return funds[i].Priority < funds[j].Priority
			}
			return funds[i].ID < funds[j].ID
		})

		// Applying an amount raises total fund allocation by the same
		// amount, so the re-derived balance after each step is exactly the
		// running remainder.
		remaining := result.BalanceBefore

		for _, fund := range funds {
			if fund.Increment.IsZero() {
				result.Skipped = append(result.Skipped, SkippedFund{fund.ID, fund.Name, skipZeroIncrement})
				continue
			}

			amount := fund.Increment
			if fund.Max != nil && fund.MasterID != 0 {
				balance, err := masterBalance(ctx, tx, fund.MasterID)
				if err != nil {
					return err
				}
				headroom := fund.Max.Sub(balance)
				if !headroom.IsPositive() {
					result.Skipped = append(result.Skipped, SkippedFund{fund.ID, fund.Name, skipAtMaximum})
					continue
				}
				amount = core.Min(amount, headroom)
			}

			if safeMode && remaining.Sub(amount).IsNegative() {
				amount = remaining
				if !amount.IsPositive() {
					result.Skipped = append(result.Skipped, SkippedFund{fund.ID, fund.Name, skipInsufficientFunds})
					continue
				}
			}

			newAmount := fund.MonthAmount.Add(amount)
			if err := tx.SetFundMonthAmount(ctx, fund.ID, newAmount); err != nil {
				return fmt.Errorf("apply increment to fund %d: %w", fund.ID, err)
			}

			result.Applied = append(result.Applied, AppliedFund{
				FundID:      fund.ID,
				FundName:    fund.Name,
				AmountAdded: amount,
				NewAmount:   newAmount,
			})
			result.TotalApplied = result.TotalApplied.Add(amount)
			remaining = remaining.Sub(amount)
		}

		result.BalanceAfter = remaining
		result.WouldGoNegative = remaining.IsNegative()
		return nil
	})
	if err != nil {
		return IncrementResult{}, err
	}

	slog.InfoContext(ctx, "Fund increments applied",
		"month", month,
		"year", year,
		"safe_mode", safeMode,
		"applied", len(result.Applied),
		"skipped", len(result.Skipped),
		"total_applied", result.TotalApplied.String(),
		"balance_before", result.BalanceBefore.String(),
		"balance_after", result.BalanceAfter.String())
	publishEvent(ctx, s.events, "increments_applied", month, year)
	return result, nil
}
