package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// FundService owns the fund master lifecycle: the cross-month identity of a
// savings goal, and every transition over it. All transitions run inside one
// store transaction; a partial combine/unlink/discontinue never commits.
type FundService struct {
	store  ledger.Store
	events EventPublisher
}

func NewFundService(store ledger.Store, events EventPublisher) *FundService {
	return &FundService{store: store, events: events}
}

// FundCalculation is the derived state of one fund and its master.
type FundCalculation struct {
	FundID        int64       `json:"fund_id"`
	Name          string      `json:"name"`
	MasterID      int64       `json:"master_id"`
	MasterBalance core.Money  `json:"master_balance"`
	MonthAmount   core.Money  `json:"month_amount"`
	Priority      int         `json:"priority"`
	Increment     core.Money  `json:"increment"`
	Max           *core.Money `json:"max,omitempty"`
}

// CalculateFund derives one fund's balance through its master.
func (s *FundService) CalculateFund(ctx context.Context, fundID int64) (FundCalculation, error) {
	b, err := s.store.GetBudget(ctx, fundID)
	if err != nil {
		return FundCalculation{}, err
	}
	if !b.IsFund() {
		return FundCalculation{}, core.Validationf("budget %d is not a fund", fundID)
	}
	out := FundCalculation{
		FundID:      b.ID,
		Name:        b.Name,
		MasterID:    b.MasterID,
		MonthAmount: b.MonthAmount,
		Priority:    b.Priority,
		Increment:   b.Increment,
		Max:         b.Max,
	}
	if b.MasterID != 0 {
		out.MasterBalance, err = masterBalance(ctx, s.store, b.MasterID)
		if err != nil {
			return FundCalculation{}, err
		}
	}
	return out, nil
}

// MasterFundEntry is one month's contribution inside a master's family.
type MasterFundEntry struct {
	FundID          int64      `json:"fund_id"`
	BudgetName      string     `json:"budget_name"`
	Month           int        `json:"month"`
	Year            int        `json:"year"`
	MonthAmount     core.Money `json:"month_amount"`
	Transactions    core.Money `json:"transactions"`
	NetContribution core.Money `json:"net_contribution"`
}

// MasterFundDetails is the full cross-month picture of one savings goal.
type MasterFundDetails struct {
	MasterID     int64             `json:"master_id"`
	MasterName   string            `json:"master_name"`
	TotalBalance core.Money        `json:"total_balance"`
	Funds        []MasterFundEntry `json:"funds"`
}

// MasterDetails lists every fund linked to the master with its net
// contribution, oldest first, plus the derived total balance.
func (s *FundService) MasterDetails(ctx context.Context, masterID int64) (MasterFundDetails, error) {
	master, err := s.store.GetMaster(ctx, masterID)
	if err != nil {
		return MasterFundDetails{}, err
	}
	family, err := s.store.ListFundsByMaster(ctx, masterID)
	if err != nil {
		return MasterFundDetails{}, fmt.Errorf("list funds for master %d: %w", masterID, err)
	}

	out := MasterFundDetails{MasterID: masterID, MasterName: master.Name}
	for _, f := range family {
		txnSum, err := s.store.BudgetTransactionSum(ctx, f.ID)
		if err != nil {
			return MasterFundDetails{}, fmt.Errorf("transaction sum for fund %d: %w", f.ID, err)
		}
		net := f.MonthAmount.Add(txnSum)
		out.Funds = append(out.Funds, MasterFundEntry{
			FundID:          f.ID,
			BudgetName:      f.Name,
			Month:           f.Month,
			Year:            f.Year,
			MonthAmount:     f.MonthAmount,
			Transactions:    txnSum,
			NetContribution: net,
		})
		out.TotalBalance = out.TotalBalance.Add(net)
	}
	if out.MasterName == "" && len(family) > 0 {
		out.MasterName = family[len(family)-1].Name
	}
	return out, nil
}

// CombineResult reports a merge of two fund families.
type CombineResult struct {
	TargetMasterID  int64      `json:"target_master_id"`
	DeletedMasterID int64      `json:"deleted_master_id"`
	CombinedBalance core.Money `json:"combined_balance"`
	FundsCombined   int        `json:"funds_combined"`
}

// Combine merges the target fund's family into the caller fund's master:
// every fund historically linked to the target's master is repointed, then
// the absorbed master is deleted. Balances are derived, so repointing is the
// whole merge. Irreversible.
func (s *FundService) Combine(ctx context.Context, fundID, targetFundID int64) (CombineResult, error) {
	var result CombineResult
	var month, year int
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		keeper, err := s.fundWithMaster(ctx, tx, fundID)
		if err != nil {
			return err
		}
		absorbed, err := s.fundWithMaster(ctx, tx, targetFundID)
		if err != nil {
			return err
		}
		if keeper.MasterID == absorbed.MasterID {
			return core.Conflictf("funds %d and %d already share master %d", fundID, targetFundID, keeper.MasterID)
		}
		month, year = keeper.Month, keeper.Year

		moved, err := tx.RepointFunds(ctx, absorbed.MasterID, keeper.MasterID)
		if err != nil {
			return fmt.Errorf("repoint funds %d -> %d: %w", absorbed.MasterID, keeper.MasterID, err)
		}
		if err := tx.DeleteMaster(ctx, absorbed.MasterID); err != nil {
			return fmt.Errorf("delete absorbed master %d: %w", absorbed.MasterID, err)
		}

		balance, err := masterBalance(ctx, tx, keeper.MasterID)
		if err != nil {
			return err
		}
		result = CombineResult{
			TargetMasterID:  keeper.MasterID,
			DeletedMasterID: absorbed.MasterID,
			CombinedBalance: balance,
			FundsCombined:   moved,
		}
		return nil
	})
	if err != nil {
		return CombineResult{}, err
	}

	slog.InfoContext(ctx, "Fund masters combined",
		"target_master_id", result.TargetMasterID,
		"deleted_master_id", result.DeletedMasterID,
		"funds_combined", result.FundsCombined,
		"combined_balance", result.CombinedBalance.String())
	publishEvent(ctx, s.events, "masters_combined", month, year)
	return result, nil
}

// UnlinkResult reports a split of one fund family.
type UnlinkResult struct {
	FundID           int64      `json:"fund_id"`
	NewMasterID      int64      `json:"new_master_id"`
	NewMasterBalance core.Money `json:"new_master_balance"`
	OldMasterID      int64      `json:"old_master_id"`
	OldMasterBalance core.Money `json:"old_master_balance"`
}

// Unlink detaches the fund onto a brand-new master holding keepAmount of the
// old family's derived balance. The division is recorded as a pair of
// opposite synthetic adjustment entries so that new.balance == keepAmount and
// old.balance == balance - keepAmount exactly.
func (s *FundService) Unlink(ctx context.Context, fundID int64, keepAmount core.Money) (UnlinkResult, error) {
	if keepAmount.IsNegative() {
		return UnlinkResult{}, core.Validationf("keep_amount %s is negative", keepAmount)
	}

	var result UnlinkResult
	var month, year int
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		fund, err := s.fundWithMaster(ctx, tx, fundID)
		if err != nil {
			return err
		}
		oldMasterID := fund.MasterID
		month, year = fund.Month, fund.Year

		family, err := tx.ListFundsByMaster(ctx, oldMasterID)
		if err != nil {
			return fmt.Errorf("list funds for master %d: %w", oldMasterID, err)
		}
		if len(family) < 2 {
			return core.Preconditionf("fund %d is the only fund linked to master %d, nothing to split", fundID, oldMasterID)
		}

		balance, err := masterBalance(ctx, tx, oldMasterID)
		if err != nil {
			return err
		}
		if keepAmount.Cents > balance.Cents {
			return core.Validationf("keep_amount %s exceeds master balance %s", keepAmount, balance)
		}

		newMasterID, err := tx.CreateMaster(ctx, core.FundMaster{Name: fund.Name})
		if err != nil {
			return fmt.Errorf("create master: %w", err)
		}
		if err := tx.SetFundMaster(ctx, fundID, newMasterID); err != nil {
			return err
		}

		// The fund's own net contribution rarely equals keepAmount, so the
		// difference is booked as opposite adjustment entries on the two
		// families. Fund transactions never touch the household balance, so
		// only the master balances move.
		ownTxnSum, err := tx.BudgetTransactionSum(ctx, fundID)
		if err != nil {
			return fmt.Errorf("transaction sum for fund %d: %w", fundID, err)
		}
		adjustment := keepAmount.Sub(fund.MonthAmount.Add(ownTxnSum))
		if !adjustment.IsZero() {
			var counterpart core.Budget
			for i := len(family) - 1; i >= 0; i-- {
				if family[i].ID != fundID {
					counterpart = family[i]
					break
				}
			}
			date := time.Date(fund.Year, time.Month(fund.Month), 1, 0, 0, 0, 0, time.UTC)
			pair := []core.Transaction{
				{Amount: adjustment, BudgetID: fundID, Date: date},
				{Amount: adjustment.Neg(), BudgetID: counterpart.ID, Date: date},
			}
			for _, txn := range pair {
				txn.Description = "Fund split adjustment"
				txn.Type = core.TypeTransfer
				txn.ExcludeFromBudget = true
				if _, err := tx.CreateTransaction(ctx, txn); err != nil {
					return fmt.Errorf("record split adjustment: %w", err)
				}
			}
		}

		newBalance, err := masterBalance(ctx, tx, newMasterID)
		if err != nil {
			return err
		}
		oldBalance, err := masterBalance(ctx, tx, oldMasterID)
		if err != nil {
			return err
		}
		result = UnlinkResult{
			FundID:           fundID,
			NewMasterID:      newMasterID,
			NewMasterBalance: newBalance,
			OldMasterID:      oldMasterID,
			OldMasterBalance: oldBalance,
		}
		return nil
	})
	if err != nil {
		return UnlinkResult{}, err
	}

	slog.InfoContext(ctx, "Fund unlinked",
		"fund_id", result.FundID,
		"new_master_id", result.NewMasterID,
		"new_master_balance", result.NewMasterBalance.String(),
		"old_master_id", result.OldMasterID,
		"old_master_balance", result.OldMasterBalance.String())
	publishEvent(ctx, s.events, "fund_unlinked", month, year)
	return result, nil
}

// AddMonthResult reports a fund created for an orphaned master.
type AddMonthResult struct {
	FundID        int64      `json:"fund_id"`
	MasterID      int64      `json:"master_id"`
	MasterBalance core.Money `json:"master_balance"`
	Month         int        `json:"month"`
	Year          int        `json:"year"`
}

// AddMonthToMaster creates a fund budget for the period referencing an
// existing master, resuming an orphaned savings goal.
func (s *FundService) AddMonthToMaster(ctx context.Context, masterID int64, month, year, priority int, increment core.Money, max *core.Money) (AddMonthResult, error) {
	if err := validatePeriod(month, year); err != nil {
		return AddMonthResult{}, err
	}
	if increment.IsNegative() {
		return AddMonthResult{}, core.Validationf("increment %s is negative", increment)
	}

	var result AddMonthResult
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		master, err := tx.GetMaster(ctx, masterID)
		if err != nil {
			return err
		}
		family, err := tx.ListFundsByMaster(ctx, masterID)
		if err != nil {
			return fmt.Errorf("list funds for master %d: %w", masterID, err)
		}
		for _, f := range family {
			if f.Month == month && f.Year == year {
				return core.Conflictf("master %d already has fund %d in %d/%d", masterID, f.ID, month, year)
			}
		}

		name := master.Name
		if name == "" && len(family) > 0 {
			name = family[len(family)-1].Name
		}
		if name == "" {
			name = "Resumed Fund"
		}

		fundID, err := tx.CreateBudget(ctx, core.Budget{
			Name:      name,
			Kind:      core.KindFund,
			Month:     month,
			Year:      year,
			Enabled:   true,
			Priority:  priority,
			Increment: increment,
			Max:       max,
			MasterID:  masterID,
		})
		if err != nil {
			return fmt.Errorf("create fund budget: %w", err)
		}

		balance, err := masterBalance(ctx, tx, masterID)
		if err != nil {
			return err
		}
		result = AddMonthResult{
			FundID:        fundID,
			MasterID:      masterID,
			MasterBalance: balance,
			Month:         month,
			Year:          year,
		}
		return nil
	})
	if err != nil {
		return AddMonthResult{}, err
	}

	slog.InfoContext(ctx, "Month added to master",
		"master_id", result.MasterID, "fund_id", result.FundID, "month", month, "year", year)
	publishEvent(ctx, s.events, "master_month_added", month, year)
	return result, nil
}

// DiscontinueResult reports a terminated master.
type DiscontinueResult struct {
	MasterID        int64      `json:"master_id"`
	WithdrawnAmount core.Money `json:"withdrawn_amount"`
	Month           int        `json:"month"`
	Year            int        `json:"year"`
}

// Discontinue terminates an orphaned master: the full derived balance is
// withdrawn via a synthetic transaction on the family's last fund, every
// historical link is severed, and the master is deleted. Fails if a fund
// still references the master in the given period.
func (s *FundService) Discontinue(ctx context.Context, masterID int64, month, year int) (DiscontinueResult, error) {
	if err := validatePeriod(month, year); err != nil {
		return DiscontinueResult{}, err
	}

	var result DiscontinueResult
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.GetMaster(ctx, masterID); err != nil {
			return err
		}
		family, err := tx.ListFundsByMaster(ctx, masterID)
		if err != nil {
			return fmt.Errorf("list funds for master %d: %w", masterID, err)
		}
		if len(family) == 0 {
			return core.Preconditionf("master %d has no funds to withdraw from", masterID)
		}
		for _, f := range family {
			if f.Month == month && f.Year == year {
				return core.Preconditionf("master %d still has active fund %d in %d/%d, unlink it first", masterID, f.ID, month, year)
			}
		}

		balance, err := masterBalance(ctx, tx, masterID)
		if err != nil {
			return err
		}
		if !balance.IsZero() {
			last := family[len(family)-1]
			_, err := tx.CreateTransaction(ctx, core.Transaction{
				Amount:            balance.Neg(),
				Description:       "Fund discontinued",
				Date:              time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
				BudgetID:          last.ID,
				Type:              core.TypeTransfer,
				ExcludeFromBudget: true,
			})
			if err != nil {
				return fmt.Errorf("record withdrawal: %w", err)
			}
		}

		if err := tx.SeverMasterLinks(ctx, masterID); err != nil {
			return fmt.Errorf("sever links of master %d: %w", masterID, err)
		}
		if err := tx.DeleteMaster(ctx, masterID); err != nil {
			return fmt.Errorf("delete master %d: %w", masterID, err)
		}

		result = DiscontinueResult{
			MasterID:        masterID,
			WithdrawnAmount: balance.Neg(),
			Month:           month,
			Year:            year,
		}
		return nil
	})
	if err != nil {
		return DiscontinueResult{}, err
	}

	slog.InfoContext(ctx, "Fund master discontinued",
		"master_id", result.MasterID,
		"withdrawn_amount", result.WithdrawnAmount.String(),
		"month", month, "year", year)
	publishEvent(ctx, s.events, "master_discontinued", month, year)
	return result, nil
}

// OrphanedMaster is a savings goal with balance but no fund in the period.
type OrphanedMaster struct {
	MasterID        int64      `json:"master_id"`
	Name            string     `json:"name"`
	Balance         core.Money `json:"balance"`
	LastFundName    string     `json:"last_fund_name,omitempty"`
	LastActiveMonth int        `json:"last_active_month,omitempty"`
	LastActiveYear  int        `json:"last_active_year,omitempty"`
}

// Orphans lists masters holding a positive balance with no fund budget in the
// given period. These need attention: resume with AddMonthToMaster or
// terminate with Discontinue.
func (s *FundService) Orphans(ctx context.Context, month, year int) ([]OrphanedMaster, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	masters, err := s.store.ListMasters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list masters: %w", err)
	}

	var out []OrphanedMaster
	for _, master := range masters {
		family, err := s.store.ListFundsByMaster(ctx, master.ID)
		if err != nil {
			return nil, fmt.Errorf("list funds for master %d: %w", master.ID, err)
		}
		if len(family) == 0 {
			continue
		}
		active := false
		for _, f := range family {
			if f.Month == month && f.Year == year {
				active = true
				break
			}
		}
		if active {
			continue
		}
		balance, err := masterBalance(ctx, s.store, master.ID)
		if err != nil {
			return nil, err
		}
		if !balance.IsPositive() {
			continue
		}
		last := family[len(family)-1]
		name := master.Name
		if name == "" {
			name = last.Name
		}
		out = append(out, OrphanedMaster{
			MasterID:        master.ID,
			Name:            name,
			Balance:         balance,
			LastFundName:    last.Name,
			LastActiveMonth: last.Month,
			LastActiveYear:  last.Year,
		})
	}
	return out, nil
}

// fundWithMaster loads a budget and requires it to be a master-linked fund.
func (s *FundService) fundWithMaster(ctx context.Context, r ledger.Reader, fundID int64) (core.Budget, error) {
	b, err := r.GetBudget(ctx, fundID)
	if err != nil {
		return core.Budget{}, err
	}
	if !b.IsFund() {
		return core.Budget{}, core.Validationf("budget %d is not a fund", fundID)
	}
	if b.MasterID == 0 {
		return core.Budget{}, core.Preconditionf("fund %d has no master", fundID)
	}
	return b, nil
}
