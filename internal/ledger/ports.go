// Package ledger defines the storage ports the session layer depends on. Backends
// live in subpackages (memory, google) and in the SQLite adapter.
package ledger

import (
	"context"

	"budgetwise/internal/core"
)

// Ports for outbound adapters. Every method is scoped to one user.
type (
	// TransactionLister returns the full history, newest first.
	TransactionLister interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// TransactionWriter validates and persists a new transaction, returning the
	// canonical record with its assigned ID.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error)
	}

	// TransactionDeleter removes exactly one record. Deleting an unknown ID is a no-op.
	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// BudgetLimitReader returns the stored limits. The map is sparse.
	BudgetLimitReader interface {
		GetBudgetLimits(ctx context.Context, userID string) (core.BudgetLimits, error)
	}

	// BudgetLimitWriter upserts the limit for (user, category).
	BudgetLimitWriter interface {
		SetBudgetLimit(ctx context.Context, userID string, c core.Category, limit float64) error
	}

	Store interface {
		TransactionLister
		TransactionWriter
		TransactionDeleter
		BudgetLimitReader
		BudgetLimitWriter
	}
)
