// Package storage is the SQLite persistence layer: schema migrations, queries and
// a repository that speaks in core types.
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

	"budgetwise/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// SyncRecord is a stored transaction with the owner and mirror state the worker needs.
type SyncRecord struct {
	UserID      string
	Transaction core.Transaction
	SyncStatus  string
	CreatedAt   time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
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

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions returns the user's history, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = toCore(row)
	}
	return out, nil
}

// InsertTransaction stores a record that already carries its ID. New rows are
// pending until the mirror marks them synced.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	err := r.queries.CreateTransaction(ctx, Transaction{
		ID:          tx.ID,
		UserID:      userID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Category:    string(tx.Category),
		Description: tx.Description,
		Date:        tx.Date.UnixMilli(),
		CreatedAt:   r.now().UnixMilli(),
		SyncStatus:  SyncPending,
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"type", tx.Type,
		"category", tx.Category,
		"amount", tx.Amount)
	return nil
}

// GetTransaction returns the stored record and its owner.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (*SyncRecord, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	rec := toSyncRecord(row)
	return &rec, nil
}

// DeleteTransaction removes the user's row with id and reports whether one existed.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) (bool, error) {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetBudgetLimits(ctx context.Context, userID string) (core.BudgetLimits, error) {
	rows, err := r.queries.ListBudgetLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budget limits: %w", err)
	}
	limits := make(core.BudgetLimits, len(rows))
	for _, row := range rows {
		limits[core.Category(row.Category)] = row.BudgetLimit
	}
	return limits, nil
}

func (r *SQLiteRepository) SetBudgetLimit(ctx context.Context, userID string, c core.Category, limit float64) error {
	if err := core.ValidateLimit(c, limit); err != nil {
		return err
	}
	err := r.queries.UpsertBudgetLimit(ctx, BudgetLimit{
		UserID:      userID,
		Category:    string(c),
		BudgetLimit: limit,
		UpdatedAt:   r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("upsert budget limit: %w", err)
	}
	return nil
}

// PendingSync returns up to limit rows that have not reached the mirror yet,
// oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]SyncRecord, error) {
	rows, err := r.queries.ListPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	out := make([]SyncRecord, len(rows))
	for i, row := range rows {
		out[i] = toSyncRecord(row)
	}
	return out, nil
}

// MarkSynced marks a transaction as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.queries.SetSyncStatus(ctx, id, SyncSynced); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError flags a transaction whose mirror attempt failed. It stays eligible
// for the periodic sweep.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.SetSyncStatus(ctx, id, SyncError); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func toCore(row Transaction) core.Transaction {
	return core.Transaction{
		ID:          row.ID,
		Type:        core.TransactionType(row.Type),
		Amount:      row.Amount,
		Category:    core.Category(row.Category),
		Description: row.Description,
		Date:        time.UnixMilli(row.Date).UTC(),
	}
}

func toSyncRecord(row Transaction) SyncRecord {
	return SyncRecord{
		UserID:      row.UserID,
		Transaction: toCore(row),
		SyncStatus:  row.SyncStatus,
		CreatedAt:   time.UnixMilli(row.CreatedAt).UTC(),
	}
}
