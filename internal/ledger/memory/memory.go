// Package memory is an in-memory ledger store. It backs service tests and the
// "memory" data backend for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

type Store struct {
	mu sync.RWMutex
	d  dataset
}

type dataset struct {
	budgets   map[int64]core.Budget
	masters   map[int64]core.FundMaster
	txns      map[int64]core.Transaction
	lineItems map[int64]core.LineItem
	nextID    int64
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*memTx)(nil)
)

func New() *Store {
	return &Store{d: dataset{
		budgets:   make(map[int64]core.Budget),
		masters:   make(map[int64]core.FundMaster),
		txns:      make(map[int64]core.Transaction),
		lineItems: make(map[int64]core.LineItem),
	}}
}

// WithTx serializes writers behind the store mutex and restores a snapshot on
// failure, so a broken multi-step transition leaves nothing behind.
func (s *Store) WithTx(_ context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.d.clone()
	if err := fn(&memTx{d: &s.d}); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

func (d dataset) clone() dataset {
	out := dataset{
		budgets:   make(map[int64]core.Budget, len(d.budgets)),
		masters:   make(map[int64]core.FundMaster, len(d.masters)),
		txns:      make(map[int64]core.Transaction, len(d.txns)),
		lineItems: make(map[int64]core.LineItem, len(d.lineItems)),
		nextID:    d.nextID,
	}
	for k, v := range d.budgets {
		out.budgets[k] = v
	}
	for k, v := range d.masters {
		out.masters[k] = v
	}
	for k, v := range d.txns {
		out.txns[k] = v
	}
	for k, v := range d.lineItems {
		out.lineItems[k] = v
	}
	return out
}

func (d *dataset) id() int64 {
	d.nextID++
	return d.nextID
}

// Reader methods on Store take the read lock and delegate to the dataset.

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getBudget(id)
}

func (s *Store) ListBudgets(_ context.Context, month, year int) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listBudgets(month, year), nil
}

func (s *Store) ListBudgetsNamed(_ context.Context, name string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listBudgetsNamed(name), nil
}

func (s *Store) ListFundsByMaster(_ context.Context, masterID int64) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listFundsByMaster(masterID), nil
}

func (s *Store) GetMaster(_ context.Context, id int64) (core.FundMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getMaster(id)
}

func (s *Store) ListMasters(_ context.Context) ([]core.FundMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listMasters(), nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getTransaction(id)
}

func (s *Store) GetLineItem(_ context.Context, id int64) (core.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.getLineItem(id)
}

func (s *Store) ListLineItems(_ context.Context, transactionID int64) ([]core.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.listLineItems(transactionID), nil
}

func (s *Store) TransactionSums(_ context.Context, month, year int) (map[int64]core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.transactionSums(month, year), nil
}

func (s *Store) BudgetTransactionSum(_ context.Context, budgetID int64) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.budgetTransactionSum(budgetID), nil
}

// memTx operates on the dataset while WithTx holds the write lock.
type memTx struct {
	d *dataset
}

func (t *memTx) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	return t.d.getBudget(id)
}

func (t *memTx) ListBudgets(_ context.Context, month, year int) ([]core.Budget, error) {
	return t.d.listBudgets(month, year), nil
}

func (t *memTx) ListBudgetsNamed(_ context.Context, name string) ([]core.Budget, error) {
	return t.d.listBudgetsNamed(name), nil
}

func (t *memTx) ListFundsByMaster(_ context.Context, masterID int64) ([]core.Budget, error) {
	return t.d.listFundsByMaster(masterID), nil
}

func (t *memTx) GetMaster(_ context.Context, id int64) (core.FundMaster, error) {
	return t.d.getMaster(id)
}

func (t *memTx) ListMasters(_ context.Context) ([]core.FundMaster, error) {
	return t.d.listMasters(), nil
}

func (t *memTx) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	return t.d.getTransaction(id)
}

func (t *memTx) GetLineItem(_ context.Context, id int64) (core.LineItem, error) {
	return t.d.getLineItem(id)
}

func (t *memTx) ListLineItems(_ context.Context, transactionID int64) ([]core.LineItem, error) {
	return t.d.listLineItems(transactionID), nil
}

func (t *memTx) TransactionSums(_ context.Context, month, year int) (map[int64]core.Money, error) {
	return t.d.transactionSums(month, year), nil
}

func (t *memTx) BudgetTransactionSum(_ context.Context, budgetID int64) (core.Money, error) {
	return t.d.budgetTransactionSum(budgetID), nil
}

func (t *memTx) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	b.ID = t.d.id()
	t.d.budgets[b.ID] = b
	return b.ID, nil
}

func (t *memTx) DeleteBudget(_ context.Context, id int64) error {
	if _, ok := t.d.budgets[id]; !ok {
		return core.NotFoundf("budget %d not found", id)
	}
	delete(t.d.budgets, id)
	return nil
}

func (t *memTx) SetFundMonthAmount(_ context.Context, fundID int64, amount core.Money) error {
	b, ok := t.d.budgets[fundID]
	if !ok || !b.IsFund() {
		return core.NotFoundf("fund %d not found", fundID)
	}
	b.MonthAmount = amount
	t.d.budgets[fundID] = b
	return nil
}

func (t *memTx) SetFundMaster(_ context.Context, fundID, masterID int64) error {
	b, ok := t.d.budgets[fundID]
	if !ok || !b.IsFund() {
		return core.NotFoundf("fund %d not found", fundID)
	}
	b.MasterID = masterID
	t.d.budgets[fundID] = b
	return nil
}

func (t *memTx) RepointFunds(_ context.Context, fromMaster, toMaster int64) (int, error) {
	moved := 0
	for id, b := range t.d.budgets {
		if b.IsFund() && b.MasterID == fromMaster {
			b.MasterID = toMaster
			t.d.budgets[id] = b
			moved++
		}
	}
	return moved, nil
}

func (t *memTx) SeverMasterLinks(_ context.Context, masterID int64) error {
	for id, b := range t.d.budgets {
		if b.IsFund() && b.MasterID == masterID {
			b.MasterID = 0
			t.d.budgets[id] = b
		}
	}
	return nil
}

func (t *memTx) CreateMaster(_ context.Context, m core.FundMaster) (int64, error) {
	m.ID = t.d.id()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	t.d.masters[m.ID] = m
	return m.ID, nil
}

func (t *memTx) DeleteMaster(_ context.Context, id int64) error {
	if _, ok := t.d.masters[id]; !ok {
		return core.NotFoundf("fund master %d not found", id)
	}
	delete(t.d.masters, id)
	return nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn core.Transaction) (int64, error) {
	txn.ID = t.d.id()
	t.d.txns[txn.ID] = txn
	return txn.ID, nil
}

func (t *memTx) AssignTransaction(_ context.Context, transactionID, budgetID int64) error {
	txn, ok := t.d.txns[transactionID]
	if !ok {
		return core.NotFoundf("transaction %d not found", transactionID)
	}
	txn.BudgetID = budgetID
	t.d.txns[transactionID] = txn
	return nil
}

func (t *memTx) SetTransactionType(_ context.Context, transactionID int64, typ core.TransactionType, exclude bool) error {
	txn, ok := t.d.txns[transactionID]
	if !ok {
		return core.NotFoundf("transaction %d not found", transactionID)
	}
	txn.Type = typ
	txn.ExcludeFromBudget = exclude
	t.d.txns[transactionID] = txn
	return nil
}

func (t *memTx) SetTransactionSplit(_ context.Context, transactionID int64, split bool) error {
	txn, ok := t.d.txns[transactionID]
	if !ok {
		return core.NotFoundf("transaction %d not found", transactionID)
	}
	txn.IsSplit = split
	t.d.txns[transactionID] = txn
	return nil
}

func (t *memTx) CreateLineItem(_ context.Context, li core.LineItem) (int64, error) {
	if _, ok := t.d.txns[li.TransactionID]; !ok {
		return 0, core.NotFoundf("transaction %d not found", li.TransactionID)
	}
	li.ID = t.d.id()
	t.d.lineItems[li.ID] = li
	return li.ID, nil
}

func (t *memTx) UpdateLineItem(_ context.Context, li core.LineItem) error {
	existing, ok := t.d.lineItems[li.ID]
	if !ok {
		return core.NotFoundf("line item %d not found", li.ID)
	}
	li.TransactionID = existing.TransactionID
	t.d.lineItems[li.ID] = li
	return nil
}

func (t *memTx) DeleteLineItem(_ context.Context, id int64) error {
	if _, ok := t.d.lineItems[id]; !ok {
		return core.NotFoundf("line item %d not found", id)
	}
	delete(t.d.lineItems, id)
	return nil
}

// dataset query logic shared by Store and memTx.

func (d *dataset) getBudget(id int64) (core.Budget, error) {
	b, ok := d.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFoundf("budget %d not found", id)
	}
	return b, nil
}

func (d *dataset) listBudgets(month, year int) []core.Budget {
	var out []core.Budget
	for _, b := range d.budgets {
		if b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	sortBudgets(out)
	return out
}

func (d *dataset) listBudgetsNamed(name string) []core.Budget {
	var out []core.Budget
	for _, b := range d.budgets {
		if b.Name == name {
			out = append(out, b)
		}
	}
	sortBudgets(out)
	return out
}

func (d *dataset) listFundsByMaster(masterID int64) []core.Budget {
	var out []core.Budget
	for _, b := range d.budgets {
		if b.IsFund() && b.MasterID == masterID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *dataset) getMaster(id int64) (core.FundMaster, error) {
	m, ok := d.masters[id]
	if !ok {
		return core.FundMaster{}, core.NotFoundf("fund master %d not found", id)
	}
	return m, nil
}

func (d *dataset) listMasters() []core.FundMaster {
	out := make([]core.FundMaster, 0, len(d.masters))
	for _, m := range d.masters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *dataset) getTransaction(id int64) (core.Transaction, error) {
	txn, ok := d.txns[id]
	if !ok {
		return core.Transaction{}, core.NotFoundf("transaction %d not found", id)
	}
	return txn, nil
}

func (d *dataset) getLineItem(id int64) (core.LineItem, error) {
	li, ok := d.lineItems[id]
	if !ok {
		return core.LineItem{}, core.NotFoundf("line item %d not found", id)
	}
	return li, nil
}

func (d *dataset) listLineItems(transactionID int64) []core.LineItem {
	var out []core.LineItem
	for _, li := range d.lineItems {
		if li.TransactionID == transactionID {
			out = append(out, li)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *dataset) transactionSums(month, year int) map[int64]core.Money {
	inPeriod := make(map[int64]bool)
	for id, b := range d.budgets {
		if b.Month == month && b.Year == year {
			inPeriod[id] = true
		}
	}
	sums := make(map[int64]core.Money)
	for _, txn := range d.txns {
		if txn.ExcludeFromBudget {
			continue
		}
		if txn.IsSplit {
			for _, li := range d.lineItems {
				if li.TransactionID == txn.ID && inPeriod[li.BudgetID] {
					sums[li.BudgetID] = sums[li.BudgetID].Add(li.Amount)
				}
			}
			continue
		}
		if inPeriod[txn.BudgetID] {
			sums[txn.BudgetID] = sums[txn.BudgetID].Add(txn.Amount)
		}
	}
	return sums
}

func (d *dataset) budgetTransactionSum(budgetID int64) core.Money {
	var total core.Money
	for _, txn := range d.txns {
		if !txn.IsSplit && txn.BudgetID == budgetID {
			total = total.Add(txn.Amount)
		}
	}
	for _, li := range d.lineItems {
		if li.BudgetID != budgetID {
			continue
		}
		total = total.Add(li.Amount)
	}
	return total
}

func sortBudgets(bs []core.Budget) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].ID < bs[j].ID })
}
