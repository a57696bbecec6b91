package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// BudgetService owns envelope CRUD and the month view.
type BudgetService struct {
	store  ledger.Store
	events EventPublisher
}

func NewBudgetService(store ledger.Store, events EventPublisher) *BudgetService {
	return &BudgetService{store: store, events: events}
}

// GetAllBudgets assembles the period's envelope set with transaction sums,
// carryover, and derived master balances. The two independent reads run
// concurrently; reads need no locks.
func (s *BudgetService) GetAllBudgets(ctx context.Context, month, year int) (core.MonthBudgets, error) {
	if err := validatePeriod(month, year); err != nil {
		return core.MonthBudgets{}, err
	}

	var (
		budgets []core.Budget
		sums    map[int64]core.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, month, year)
		if err != nil {
			return fmt.Errorf("list budgets %d/%d: %w", month, year, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sums, err = s.store.TransactionSums(gctx, month, year)
		if err != nil {
			return fmt.Errorf("transaction sums %d/%d: %w", month, year, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.MonthBudgets{}, err
	}

	return buildMonth(ctx, s.store, month, year, budgets, sums)
}

// CreateBudgetRequest is the discriminated create payload. Fund fields are
// ignored for other kinds and vice versa.
type CreateBudgetRequest struct {
	Name           string
	Type           core.BudgetKind
	Month          int
	Year           int
	Fixed          bool
	ExpectedAmount core.Money
	Min            *core.Money
	Max            *core.Money
	Priority       int
	Increment      core.Money
	MonthAmount    core.Money
	MasterID       int64 // optional: link the new fund to an existing master
}

// CreateBudget creates one envelope for the period. Creating a fund without a
// master reference allocates a fresh master (link-on-create); referencing an
// existing master fails if that master already has a fund in the period.
func (s *BudgetService) CreateBudget(ctx context.Context, req CreateBudgetRequest) (core.Budget, error) {
	b := core.Budget{
		Name:           req.Name,
		Kind:           req.Type,
		Month:          req.Month,
		Year:           req.Year,
		Enabled:        true,
		Fixed:          req.Fixed,
		ExpectedAmount: req.ExpectedAmount,
		Min:            req.Min,
		Max:            req.Max,
		Priority:       req.Priority,
		Increment:      req.Increment,
		MonthAmount:    req.MonthAmount,
		MasterID:       req.MasterID,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		existing, err := tx.ListBudgets(ctx, b.Month, b.Year)
		if err != nil {
			return fmt.Errorf("list budgets %d/%d: %w", b.Month, b.Year, err)
		}
		for _, other := range existing {
			if other.Name == b.Name && other.Kind == b.Kind {
				return core.Conflictf("budget %q already exists for %d/%d", b.Name, b.Month, b.Year)
			}
		}

		if b.IsFund() {
			if b.MasterID != 0 {
				if _, err := tx.GetMaster(ctx, b.MasterID); err != nil {
					return err
				}
				family, err := tx.ListFundsByMaster(ctx, b.MasterID)
				if err != nil {
					return fmt.Errorf("list funds for master %d: %w", b.MasterID, err)
				}
				for _, f := range family {
					if f.Month == b.Month && f.Year == b.Year {
						return core.Conflictf("master %d already has fund %d in %d/%d", b.MasterID, f.ID, b.Month, b.Year)
					}
				}
			} else {
				masterID, err := tx.CreateMaster(ctx, core.FundMaster{Name: b.Name})
				if err != nil {
					return fmt.Errorf("create fund master: %w", err)
				}
				b.MasterID = masterID
			}
		}

		id, err := tx.CreateBudget(ctx, b)
		if err != nil {
			return fmt.Errorf("create budget: %w", err)
		}
		b.ID = id
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", b.ID,
		"name", b.Name,
		"type", string(b.Kind),
		"month", b.Month,
		"year", b.Year,
		"master_id", b.MasterID)
	s.publish(ctx, "budget_created", b.Month, b.Year)
	return b, nil
}

// DeleteBudget removes one envelope. Deleting the last fund of a master also
// removes the master so no identity dangles without members.
func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	var month, year int
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		month, year = b.Month, b.Year
		if err := tx.DeleteBudget(ctx, id); err != nil {
			return err
		}
		if b.IsFund() && b.MasterID != 0 {
			family, err := tx.ListFundsByMaster(ctx, b.MasterID)
			if err != nil {
				return fmt.Errorf("list funds for master %d: %w", b.MasterID, err)
			}
			if len(family) == 0 {
				if err := tx.DeleteMaster(ctx, b.MasterID); err != nil {
					return fmt.Errorf("delete empty master %d: %w", b.MasterID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget deleted", "budget_id", id, "month", month, "year", year)
	s.publish(ctx, "budget_deleted", month, year)
	return nil
}

// BudgetName is a picker entry; MasterID is set for funds only.
type BudgetName struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MasterID int64  `json:"master_id,omitempty"`
}

// BudgetNames lists the period's budgets for assignment pickers.
func (s *BudgetService) BudgetNames(ctx context.Context, month, year int) ([]BudgetName, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	budgets, err := s.store.ListBudgets(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets %d/%d: %w", month, year, err)
	}
	out := make([]BudgetName, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetName{ID: b.ID, Name: b.Name, MasterID: b.MasterID})
	}
	return out, nil
}

func (s *BudgetService) publish(ctx context.Context, operation string, month, year int) {
	publishEvent(ctx, s.events, operation, month, year)
}
