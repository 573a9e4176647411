package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Transaction is a row of the transactions table. Dates are unix milliseconds.
type Transaction struct {
	ID          string
	UserID      string
	Type        string
	Amount      float64
	Category    string
	Description string
	Date        int64
	CreatedAt   int64
	SyncStatus  string
}

type BudgetLimit struct {
	UserID      string
	Category    string
	BudgetLimit float64
	UpdatedAt   int64
}

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const transactionColumns = `id, user_id, type, amount, category, description, date, created_at, sync_status`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Category, &t.Description, &t.Date, &t.CreatedAt, &t.SyncStatus)
	return t, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, t.Type, t.Amount, t.Category, t.Description, t.Date, t.CreatedAt, t.SyncStatus)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactionsByUser = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ?
ORDER BY date DESC, created_at DESC`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID string) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByUser, userID)
}

const listPendingSync = `SELECT ` + transactionColumns + ` FROM transactions
WHERE sync_status != 'synced'
ORDER BY created_at ASC
LIMIT ?`

func (q *Queries) ListPendingSync(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.listTransactions(ctx, listPendingSync, limit)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setSyncStatus = `UPDATE transactions SET sync_status = ? WHERE id = ?`

func (q *Queries) SetSyncStatus(ctx context.Context, id, status string) error {
	_, err := q.db.ExecContext(ctx, setSyncStatus, status, id)
	return err
}

const listBudgetLimits = `SELECT user_id, category, budget_limit, updated_at FROM budget_limits
WHERE user_id = ?
ORDER BY category`

func (q *Queries) ListBudgetLimits(ctx context.Context, userID string) ([]BudgetLimit, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetLimits, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetLimit
	for rows.Next() {
		var b BudgetLimit
		if err := rows.Scan(&b.UserID, &b.Category, &b.BudgetLimit, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertBudgetLimit = `INSERT INTO budget_limits (user_id, category, budget_limit, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, category) DO UPDATE SET
    budget_limit = excluded.budget_limit,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertBudgetLimit(ctx context.Context, b BudgetLimit) error {
	_, err := q.db.ExecContext(ctx, upsertBudgetLimit, b.UserID, b.Category, b.BudgetLimit, b.UpdatedAt)
	return err
}
