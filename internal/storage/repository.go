package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tally/internal/core"
)

// ErrNotFound is returned when a lookup or mutation targets a missing row.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows ListTransactions. Date bounds are inclusive ISO
// dates; zero values mean "no constraint".
type TransactionFilter struct {
	StartDate  string
	EndDate    string
	CategoryID string
	Limit      int
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTransactions returns transactions matching the filter, newest date
// first. Amounts round-trip through exact decimal text.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, wallet_id, category_id, kind, amount, description, date, created_at
		FROM transactions WHERE 1=1`
	var args []any

	if filter.StartDate != "" {
		query += " AND date >= ?"
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += " AND date <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.CategoryID != "" {
		query += " AND category_id = ?"
		args = append(args, filter.CategoryID)
	}
	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, wallet_id, category_id, kind, amount, description, date, created_at
		FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// CreateTransaction assigns the ID and creation timestamp before insert.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `INSERT INTO transactions
		(id, wallet_id, category_id, kind, amount, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WalletID, t.CategoryID, string(t.Kind), t.Amount.String(), t.Description, t.Date, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"category_id", t.CategoryID,
		"date", t.Date)
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions
		SET wallet_id = ?, category_id = ?, kind = ?, amount = ?, description = ?, date = ?
		WHERE id = ?`,
		t.WalletID, t.CategoryID, string(t.Kind), t.Amount.String(), t.Description, t.Date, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "update transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "delete transaction", id)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, kind FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(kind)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (id, name, kind) VALUES (?, ?, ?)`,
		c.ID, c.Name, string(c.Kind))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, "delete category", id)
}

func (r *SQLiteRepository) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, account_kind, currency FROM wallets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []core.Wallet
	for rows.Next() {
		var w core.Wallet
		var kind string
		if err := rows.Scan(&w.ID, &w.Name, &kind, &w.Currency); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		w.AccountKind = core.WalletKind(kind)
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, nil
}

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w *core.Wallet) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO wallets (id, name, account_kind, currency) VALUES (?, ?, ?, ?)`,
		w.ID, w.Name, string(w.AccountKind), w.Currency)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return requireRow(res, "delete wallet", id)
}

// ListBudgetLimits returns category ID to monthly expense limit.
func (r *SQLiteRepository) ListBudgetLimits(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, monthly_limit FROM budget_limits`)
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	defer rows.Close()

	limits := make(map[string]decimal.Decimal)
	for rows.Next() {
		var categoryID, raw string
		if err := rows.Scan(&categoryID, &raw); err != nil {
			return nil, fmt.Errorf("scan budget limit: %w", err)
		}
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse budget limit for %s: %w", categoryID, err)
		}
		limits[categoryID] = limit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget limits: %w", err)
	}
	return limits, nil
}

func (r *SQLiteRepository) SetBudgetLimit(ctx context.Context, categoryID string, limit decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO budget_limits (category_id, monthly_limit) VALUES (?, ?)
		ON CONFLICT(category_id) DO UPDATE SET monthly_limit = excluded.monthly_limit`,
		categoryID, limit.String())
	if err != nil {
		return fmt.Errorf("set budget limit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudgetLimit(ctx context.Context, categoryID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_limits WHERE category_id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("delete budget limit: %w", err)
	}
	return requireRow(res, "delete budget limit", categoryID)
}

// SaveSnapshot upserts a worker-precomputed report payload.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, kind string, payload []byte, generatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO report_snapshots (kind, payload, generated_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload, generated_at = excluded.generated_at`,
		kind, payload, generatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	return nil
}

// LatestSnapshot returns the stored payload and its generation time, or
// ErrNotFound if the worker has not produced one yet.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, kind string) ([]byte, time.Time, error) {
	var payload []byte
	var generatedAt time.Time
	err := r.db.QueryRowContext(ctx, `SELECT payload, generated_at FROM report_snapshots WHERE kind = ?`, kind).
		Scan(&payload, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%s snapshot: %w", kind, ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load %s snapshot: %w", kind, err)
	}
	return payload, generatedAt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var kind, amount string
	if err := row.Scan(&t.ID, &t.WalletID, &t.CategoryID, &kind, &amount, &t.Description, &t.Date, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.Kind(kind)
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount for %s: %w", t.ID, err)
	}
	t.Amount = dec
	return t, nil
}

func requireRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
