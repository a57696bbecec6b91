// Package sqlite is the durable ledger store, backed by a single SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*sqlTx)(nil)
)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WithTx runs fn inside one database transaction. SQLite serializes writers,
// so concurrent transitions on the same fund family never interleave.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&sqlTx{q: dbTx}); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// querier is the common surface of *sql.DB and *sql.Tx the read queries run
// against.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reader methods on Store run against the pool; the same queries back the
// transaction's reads.

func (s *Store) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return getBudget(ctx, s.db, id)
}

func (s *Store) ListBudgets(ctx context.Context, month, year int) ([]core.Budget, error) {
	return listBudgets(ctx, s.db, budgetColumns+` FROM budgets WHERE month = ? AND year = ? ORDER BY id`, month, year)
}

func (s *Store) ListBudgetsNamed(ctx context.Context, name string) ([]core.Budget, error) {
	return listBudgets(ctx, s.db, budgetColumns+` FROM budgets WHERE name = ? ORDER BY id`, name)
}

func (s *Store) ListFundsByMaster(ctx context.Context, masterID int64) ([]core.Budget, error) {
	return listFundsByMaster(ctx, s.db, masterID)
}

func (s *Store) GetMaster(ctx context.Context, id int64) (core.FundMaster, error) {
	return getMaster(ctx, s.db, id)
}

func (s *Store) ListMasters(ctx context.Context) ([]core.FundMaster, error) {
	return listMasters(ctx, s.db)
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

func (s *Store) GetLineItem(ctx context.Context, id int64) (core.LineItem, error) {
	return getLineItem(ctx, s.db, id)
}

func (s *Store) ListLineItems(ctx context.Context, transactionID int64) ([]core.LineItem, error) {
	return listLineItems(ctx, s.db, transactionID)
}

func (s *Store) TransactionSums(ctx context.Context, month, year int) (map[int64]core.Money, error) {
	return transactionSums(ctx, s.db, month, year)
}

func (s *Store) BudgetTransactionSum(ctx context.Context, budgetID int64) (core.Money, error) {
	return budgetTransactionSum(ctx, s.db, budgetID)
}

// sqlTx is the transactional view; reads and writes share one *sql.Tx.
type sqlTx struct {
	q *sql.Tx
}

func (t *sqlTx) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return getBudget(ctx, t.q, id)
}

func (t *sqlTx) ListBudgets(ctx context.Context, month, year int) ([]core.Budget, error) {
	return listBudgets(ctx, t.q, budgetColumns+` FROM budgets WHERE month = ? AND year = ? ORDER BY id`, month, year)
}

func (t *sqlTx) ListBudgetsNamed(ctx context.Context, name string) ([]core.Budget, error) {
	return listBudgets(ctx, t.q, budgetColumns+` FROM budgets WHERE name = ? ORDER BY id`, name)
}

func (t *sqlTx) ListFundsByMaster(ctx context.Context, masterID int64) ([]core.Budget, error) {
	return listFundsByMaster(ctx, t.q, masterID)
}

func (t *sqlTx) GetMaster(ctx context.Context, id int64) (core.FundMaster, error) {
	return getMaster(ctx, t.q, id)
}

func (t *sqlTx) ListMasters(ctx context.Context) ([]core.FundMaster, error) {
	return listMasters(ctx, t.q)
}

func (t *sqlTx) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, t.q, id)
}

func (t *sqlTx) GetLineItem(ctx context.Context, id int64) (core.LineItem, error) {
	return getLineItem(ctx, t.q, id)
}

func (t *sqlTx) ListLineItems(ctx context.Context, transactionID int64) ([]core.LineItem, error) {
	return listLineItems(ctx, t.q, transactionID)
}

func (t *sqlTx) TransactionSums(ctx context.Context, month, year int) (map[int64]core.Money, error) {
	return transactionSums(ctx, t.q, month, year)
}

func (t *sqlTx) BudgetTransactionSum(ctx context.Context, budgetID int64) (core.Money, error) {
	return budgetTransactionSum(ctx, t.q, budgetID)
}

func (t *sqlTx) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO budgets (name, kind, month, year, enabled, fixed,
			expected_amount_cents, min_cents, max_cents,
			priority, increment_cents, month_amount_cents, fund_master_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, string(b.Kind), b.Month, b.Year, b.Enabled, b.Fixed,
		b.ExpectedAmount.Cents, nullCents(b.Min), nullCents(b.Max),
		b.Priority, b.Increment.Cents, b.MonthAmount.Cents, b.MasterID)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqlTx) DeleteBudget(ctx context.Context, id int64) error {
	return execOne(ctx, t.q, `DELETE FROM budgets WHERE id = ?`,
		core.NotFoundf("budget %d not found", id), id)
}

func (t *sqlTx) SetFundMonthAmount(ctx context.Context, fundID int64, amount core.Money) error {
	return execOne(ctx, t.q, `UPDATE budgets SET month_amount_cents = ? WHERE id = ? AND kind = 'fund'`,
		core.NotFoundf("fund %d not found", fundID), amount.Cents, fundID)
}

func (t *sqlTx) SetFundMaster(ctx context.Context, fundID, masterID int64) error {
	return execOne(ctx, t.q, `UPDATE budgets SET fund_master_id = ? WHERE id = ? AND kind = 'fund'`,
		core.NotFoundf("fund %d not found", fundID), masterID, fundID)
}

func (t *sqlTx) RepointFunds(ctx context.Context, fromMaster, toMaster int64) (int, error) {
	res, err := t.q.ExecContext(ctx,
		`UPDATE budgets SET fund_master_id = ? WHERE kind = 'fund' AND fund_master_id = ?`,
		toMaster, fromMaster)
	if err != nil {
		return 0, fmt.Errorf("repoint funds: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(moved), nil
}

func (t *sqlTx) SeverMasterLinks(ctx context.Context, masterID int64) error {
	_, err := t.q.ExecContext(ctx,
		`UPDATE budgets SET fund_master_id = 0 WHERE kind = 'fund' AND fund_master_id = ?`,
		masterID)
	if err != nil {
		return fmt.Errorf("sever master links: %w", err)
	}
	return nil
}

func (t *sqlTx) CreateMaster(ctx context.Context, m core.FundMaster) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO fund_masters (name, created_at) VALUES (?, ?)`,
		m.Name, m.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert fund master: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqlTx) DeleteMaster(ctx context.Context, id int64) error {
	return execOne(ctx, t.q, `DELETE FROM fund_masters WHERE id = ?`,
		core.NotFoundf("fund master %d not found", id), id)
}

func (t *sqlTx) CreateTransaction(ctx context.Context, txn core.Transaction) (int64, error) {
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO transactions (amount_cents, description, payee, date,
			pending, budget_id, type, exclude_from_budget, is_split)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.Amount.Cents, txn.Description, txn.Payee, txn.Date,
		txn.Pending, txn.BudgetID, string(txn.Type), txn.ExcludeFromBudget, txn.IsSplit)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqlTx) AssignTransaction(ctx context.Context, transactionID, budgetID int64) error {
	return execOne(ctx, t.q, `UPDATE transactions SET budget_id = ? WHERE id = ?`,
		core.NotFoundf("transaction %d not found", transactionID), budgetID, transactionID)
}

func (t *sqlTx) SetTransactionType(ctx context.Context, transactionID int64, typ core.TransactionType, exclude bool) error {
	return execOne(ctx, t.q, `UPDATE transactions SET type = ?, exclude_from_budget = ? WHERE id = ?`,
		core.NotFoundf("transaction %d not found", transactionID), string(typ), exclude, transactionID)
}

func (t *sqlTx) SetTransactionSplit(ctx context.Context, transactionID int64, split bool) error {
	return execOne(ctx, t.q, `UPDATE transactions SET is_split = ? WHERE id = ?`,
		core.NotFoundf("transaction %d not found", transactionID), split, transactionID)
}

func (t *sqlTx) CreateLineItem(ctx context.Context, li core.LineItem) (int64, error) {
	if _, err := getTransaction(ctx, t.q, li.TransactionID); err != nil {
		return 0, err
	}
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO line_items (transaction_id, amount_cents, description, budget_id)
		VALUES (?, ?, ?, ?)`,
		li.TransactionID, li.Amount.Cents, li.Description, li.BudgetID)
	if err != nil {
		return 0, fmt.Errorf("insert line item: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqlTx) UpdateLineItem(ctx context.Context, li core.LineItem) error {
	return execOne(ctx, t.q, `UPDATE line_items SET amount_cents = ?, description = ?, budget_id = ? WHERE id = ?`,
		core.NotFoundf("line item %d not found", li.ID), li.Amount.Cents, li.Description, li.BudgetID, li.ID)
}

func (t *sqlTx) DeleteLineItem(ctx context.Context, id int64) error {
	return execOne(ctx, t.q, `DELETE FROM line_items WHERE id = ?`,
		core.NotFoundf("line item %d not found", id), id)
}

// Shared query implementations.

const budgetColumns = `SELECT id, name, kind, month, year, enabled, fixed,
	expected_amount_cents, min_cents, max_cents,
	priority, increment_cents, month_amount_cents, fund_master_id`

func getBudget(ctx context.Context, q querier, id int64) (core.Budget, error) {
	row := q.QueryRowContext(ctx, budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFoundf("budget %d not found", id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func listBudgets(ctx context.Context, q querier, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func listFundsByMaster(ctx context.Context, q querier, masterID int64) ([]core.Budget, error) {
	return listBudgets(ctx, q, budgetColumns+`
		FROM budgets WHERE kind = 'fund' AND fund_master_id = ?
		ORDER BY year, month, id`, masterID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b              core.Budget
		kind           string
		expectedCents  int64
		minCents       sql.NullInt64
		maxCents       sql.NullInt64
		incrementCents int64
		monthCents     int64
	)
	err := row.Scan(&b.ID, &b.Name, &kind, &b.Month, &b.Year, &b.Enabled, &b.Fixed,
		&expectedCents, &minCents, &maxCents,
		&b.Priority, &incrementCents, &monthCents, &b.MasterID)
	if err != nil {
		return core.Budget{}, err
	}
	b.Kind = core.BudgetKind(kind)
	b.ExpectedAmount = core.Money{Cents: expectedCents}
	b.Increment = core.Money{Cents: incrementCents}
	b.MonthAmount = core.Money{Cents: monthCents}
	if minCents.Valid {
		m := core.Money{Cents: minCents.Int64}
		b.Min = &m
	}
	if maxCents.Valid {
		m := core.Money{Cents: maxCents.Int64}
		b.Max = &m
	}
	return b, nil
}

func getMaster(ctx context.Context, q querier, id int64) (core.FundMaster, error) {
	var m core.FundMaster
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM fund_masters WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FundMaster{}, core.NotFoundf("fund master %d not found", id)
	}
	if err != nil {
		return core.FundMaster{}, fmt.Errorf("get fund master %d: %w", id, err)
	}
	return m, nil
}

func listMasters(ctx context.Context, q querier) ([]core.FundMaster, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, created_at FROM fund_masters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list fund masters: %w", err)
	}
	defer rows.Close()

	var out []core.FundMaster
	for rows.Next() {
		var m core.FundMaster
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fund master: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func getTransaction(ctx context.Context, q querier, id int64) (core.Transaction, error) {
	var (
		txn   core.Transaction
		cents int64
		typ   string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, amount_cents, description, payee, date, pending,
			budget_id, type, exclude_from_budget, is_split
		FROM transactions WHERE id = ?`, id).
		Scan(&txn.ID, &cents, &txn.Description, &txn.Payee, &txn.Date, &txn.Pending,
			&txn.BudgetID, &typ, &txn.ExcludeFromBudget, &txn.IsSplit)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFoundf("transaction %d not found", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	txn.Amount = core.Money{Cents: cents}
	txn.Type = core.TransactionType(typ)
	return txn, nil
}

func getLineItem(ctx context.Context, q querier, id int64) (core.LineItem, error) {
	var (
		li    core.LineItem
		cents int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, transaction_id, amount_cents, description, budget_id
		FROM line_items WHERE id = ?`, id).
		Scan(&li.ID, &li.TransactionID, &cents, &li.Description, &li.BudgetID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LineItem{}, core.NotFoundf("line item %d not found", id)
	}
	if err != nil {
		return core.LineItem{}, fmt.Errorf("get line item %d: %w", id, err)
	}
	li.Amount = core.Money{Cents: cents}
	return li, nil
}

func listLineItems(ctx context.Context, q querier, transactionID int64) ([]core.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, amount_cents, description, budget_id
		FROM line_items WHERE transaction_id = ? ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var out []core.LineItem
	for rows.Next() {
		var (
			li    core.LineItem
			cents int64
		)
		if err := rows.Scan(&li.ID, &li.TransactionID, &cents, &li.Description, &li.BudgetID); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.Amount = core.Money{Cents: cents}
		out = append(out, li)
	}
	return out, rows.Err()
}

// transactionSums aggregates by the receiving budget: unsplit transactions by
// their own budget, split ones by line item, skipping excluded entries.
func transactionSums(ctx context.Context, q querier, month, year int) (map[int64]core.Money, error) {
	sums := make(map[int64]core.Money)

	direct, err := q.QueryContext(ctx, `
		SELECT t.budget_id, SUM(t.amount_cents)
		FROM transactions t
		JOIN budgets b ON b.id = t.budget_id
		WHERE b.month = ? AND b.year = ?
			AND t.exclude_from_budget = 0 AND t.is_split = 0
		GROUP BY t.budget_id`, month, year)
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	defer direct.Close()
	for direct.Next() {
		var budgetID, cents int64
		if err := direct.Scan(&budgetID, &cents); err != nil {
			return nil, fmt.Errorf("scan transaction sum: %w", err)
		}
		sums[budgetID] = core.Money{Cents: cents}
	}
	if err := direct.Err(); err != nil {
		return nil, err
	}

	split, err := q.QueryContext(ctx, `
		SELECT li.budget_id, SUM(li.amount_cents)
		FROM line_items li
		JOIN transactions t ON t.id = li.transaction_id
		JOIN budgets b ON b.id = li.budget_id
		WHERE b.month = ? AND b.year = ?
			AND t.exclude_from_budget = 0 AND t.is_split = 1
		GROUP BY li.budget_id`, month, year)
	if err != nil {
		return nil, fmt.Errorf("sum split transactions: %w", err)
	}
	defer split.Close()
	for split.Next() {
		var budgetID, cents int64
		if err := split.Scan(&budgetID, &cents); err != nil {
			return nil, fmt.Errorf("scan split sum: %w", err)
		}
		sums[budgetID] = sums[budgetID].Add(core.Money{Cents: cents})
	}
	return sums, split.Err()
}

func budgetTransactionSum(ctx context.Context, q querier, budgetID int64) (core.Money, error) {
	var direct, split int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE budget_id = ? AND is_split = 0`, budgetID).Scan(&direct)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum transactions for budget %d: %w", budgetID, err)
	}
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM line_items
		WHERE budget_id = ?`, budgetID).Scan(&split)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum line items for budget %d: %w", budgetID, err)
	}
	return core.Money{Cents: direct + split}, nil
}

// execOne runs a single-row mutation and maps zero affected rows to notFound.
func execOne(ctx context.Context, q querier, query string, notFound error, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullCents(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}
