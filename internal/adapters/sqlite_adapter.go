// Package adapters exposes the SQLite repository and transaction service as a
// single ledger.Store.
package adapters

import (
	"context"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"
	"budgetwise/internal/services"
	"budgetwise/internal/storage"
)

var _ ledger.Store = (*SQLiteAdapter)(nil)

// SQLiteAdapter reads straight from the repository and routes transaction writes
// through the service so they publish change events.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.TransactionService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.TransactionService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return a.storage.ListTransactions(ctx, userID)
}

func (a *SQLiteAdapter) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	return a.service.CreateTransaction(ctx, userID, n)
}

func (a *SQLiteAdapter) DeleteTransaction(ctx context.Context, userID, id string) error {
	return a.service.DeleteTransaction(ctx, userID, id)
}

func (a *SQLiteAdapter) GetBudgetLimits(ctx context.Context, userID string) (core.BudgetLimits, error) {
	return a.storage.GetBudgetLimits(ctx, userID)
}

func (a *SQLiteAdapter) SetBudgetLimit(ctx context.Context, userID string, c core.Category, limit float64) error {
	return a.storage.SetBudgetLimit(ctx, userID, c, limit)
}

// Ping reports storage health for readiness probes.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
