package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetwise/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budgetwise.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sample(id string, amount float64, date time.Time) core.Transaction {
	return core.Transaction{ID: id, Type: core.Expense, Amount: amount, Category: core.Food, Description: "x", Date: date}
}

func TestSQLiteRepository_TransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	jan := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := repo.InsertTransaction(ctx, "ann", sample("a", 10, jan)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.InsertTransaction(ctx, "ann", sample("b", 20.75, feb)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.InsertTransaction(ctx, "bob", sample("c", 5, feb)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	list, err := repo.ListTransactions(ctx, "ann")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if !list[1].Date.Equal(jan) || list[0].Amount != 20.75 {
		t.Fatalf("fields not preserved: %+v", list)
	}

	rec, err := repo.GetTransaction(ctx, "c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.UserID != "bob" || rec.SyncStatus != SyncPending {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_DeleteScopedToUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	_ = repo.InsertTransaction(ctx, "ann", sample("a", 10, time.Now()))

	removed, err := repo.DeleteTransaction(ctx, "bob", "a")
	if err != nil || removed {
		t.Fatalf("foreign delete: removed=%v err=%v", removed, err)
	}
	removed, err = repo.DeleteTransaction(ctx, "ann", "a")
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = repo.DeleteTransaction(ctx, "ann", "a")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
}

func TestSQLiteRepository_BudgetLimits(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.SetBudgetLimit(ctx, "ann", core.Food, 300); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetBudgetLimit(ctx, "ann", core.Food, 320); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.SetBudgetLimit(ctx, "ann", core.Food, -1); !errors.Is(err, core.ErrNegativeLimit) {
		t.Fatalf("expected ErrNegativeLimit, got %v", err)
	}

	limits, err := repo.GetBudgetLimits(ctx, "ann")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(limits) != 1 || limits[core.Food] != 320 {
		t.Fatalf("unexpected limits: %v", limits)
	}
	other, _ := repo.GetBudgetLimits(ctx, "bob")
	if len(other) != 0 {
		t.Fatalf("limits leak across users: %v", other)
	}
}

func TestSQLiteRepository_SyncStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := repo.InsertTransaction(ctx, "ann", sample(id, 1, time.Now())); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	if err := repo.MarkSynced(ctx, "a"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, "b"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows, got %+v", pending)
	}
	for _, p := range pending {
		if p.Transaction.ID == "a" {
			t.Fatal("synced row returned as pending")
		}
	}

	limited, _ := repo.PendingSync(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %+v", limited)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
