package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/ledger/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// fakeStore wraps the memory backend with failure injection and a gate that
// holds the next ListTransactions call after it has read its data.
type fakeStore struct {
	*memory.Store

	mu        sync.Mutex
	createErr error
	deleteErr error
	limitErr  error
	listErr   error
	gate      chan struct{}
	started   chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{Store: memory.New()}
}

func (f *fakeStore) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	txs, err := f.Store.ListTransactions(ctx, userID)
	f.mu.Lock()
	gate, started, listErr := f.gate, f.started, f.listErr
	f.gate, f.started = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(started)
		<-gate
	}
	if listErr != nil {
		return nil, listErr
	}
	return txs, err
}

func (f *fakeStore) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	return f.Store.CreateTransaction(ctx, userID, n)
}

func (f *fakeStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.DeleteTransaction(ctx, userID, id)
}

func (f *fakeStore) SetBudgetLimit(ctx context.Context, userID string, c core.Category, limit float64) error {
	if f.limitErr != nil {
		return f.limitErr
	}
	return f.Store.SetBudgetLimit(ctx, userID, c, limit)
}

func expense(amount float64, c core.Category) core.NewTransaction {
	return core.NewTransaction{Type: core.Expense, Amount: amount, Category: c, Date: fixedNow}
}

func TestSession_RequiresUser(t *testing.T) {
	s := New(newFakeStore(), clock)
	ctx := context.Background()
	if _, err := s.AddTransaction(ctx, expense(1, core.Food)); !errors.Is(err, ErrNoUser) {
		t.Fatalf("AddTransaction without user: %v", err)
	}
	if err := s.Load(ctx); !errors.Is(err, ErrNoUser) {
		t.Fatalf("Load without user: %v", err)
	}
	if err := s.EnsureLoaded(ctx); !errors.Is(err, ErrNoUser) {
		t.Fatalf("EnsureLoaded without user: %v", err)
	}
}

func TestSession_SetUserLoadsAndClears(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	if _, err := store.Store.CreateTransaction(ctx, "ann", expense(600, core.Food)); err != nil {
		t.Fatal(err)
	}
	if err := store.Store.SetBudgetLimit(ctx, "ann", core.Food, 700); err != nil {
		t.Fatal(err)
	}

	s := New(store, clock)
	if err := s.SetUser(ctx, "ann"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	snap := s.Snapshot()
	if snap.Loading || len(snap.Transactions) != 1 || snap.Limits[core.Food] != 700 {
		t.Fatalf("unexpected snapshot after load: %+v", snap)
	}
	if snap.Aggregation.CategorySpending[core.Food] != 600 {
		t.Fatalf("aggregation not computed: %+v", snap.Aggregation)
	}

	if err := s.SetUser(ctx, ""); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	snap = s.Snapshot()
	if snap.UserID != "" || snap.Loading || len(snap.Transactions) != 0 || len(snap.Limits) != 0 {
		t.Fatalf("state not cleared on sign out: %+v", snap)
	}
}

func TestSession_MutationsRecompute(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeStore(), clock)
	_ = s.SetUser(ctx, "ann")

	first, err := s.AddTransaction(ctx, expense(100, core.Food))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := s.AddTransaction(ctx, expense(50, core.Food))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transactions) != 2 || snap.Transactions[0].ID != second.ID {
		t.Fatalf("expected prepend order, got %+v", snap.Transactions)
	}
	if snap.Aggregation.Summary.Expenses != 150 {
		t.Fatalf("summary not recomputed: %+v", snap.Aggregation.Summary)
	}

	if err := s.SetBudgetLimit(ctx, core.Food, 160); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	snap = s.Snapshot()
	food := snap.Aggregation.BudgetProgress[0]
	if food.Category != core.Food || food.Limit != 160 || !food.NearLimit() {
		t.Fatalf("limit not applied: %+v", food)
	}

	if err := s.DeleteTransaction(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap = s.Snapshot()
	if len(snap.Transactions) != 1 || snap.Aggregation.Summary.Expenses != 50 {
		t.Fatalf("delete not reconciled: %+v", snap.Aggregation.Summary)
	}
}

func TestSession_DeleteUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeStore(), clock)
	_ = s.SetUser(ctx, "ann")
	_, _ = s.AddTransaction(ctx, expense(10, core.Bills))
	before := s.Snapshot()

	if err := s.DeleteTransaction(ctx, "does-not-exist"); err != nil {
		t.Fatalf("delete unknown id: %v", err)
	}
	after := s.Snapshot()
	if len(after.Transactions) != len(before.Transactions) || after.Aggregation.Summary != before.Aggregation.Summary {
		t.Fatal("deleting an unknown id changed state")
	}
}

func TestSession_StoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := New(store, clock)
	_ = s.SetUser(ctx, "ann")
	kept, _ := s.AddTransaction(ctx, expense(10, core.Health))
	_ = s.SetBudgetLimit(ctx, core.Health, 99)

	boom := errors.New("backend unavailable")
	store.createErr, store.deleteErr, store.limitErr = boom, boom, boom

	if _, err := s.AddTransaction(ctx, expense(20, core.Health)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, kept.ID); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if err := s.SetBudgetLimit(ctx, core.Health, 5); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != kept.ID || snap.Limits[core.Health] != 99 {
		t.Fatalf("state changed after failed writes: %+v", snap)
	}
}

func TestSession_ValidatesBeforeStore(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeStore(), clock)
	_ = s.SetUser(ctx, "ann")

	if _, err := s.AddTransaction(ctx, expense(0, core.Food)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := s.SetBudgetLimit(ctx, core.Education, 10); !errors.Is(err, core.ErrNotBudgetCategory) {
		t.Fatalf("expected ErrNotBudgetCategory, got %v", err)
	}
}

func TestSession_StaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := New(store, clock)
	_, _ = store.Store.CreateTransaction(ctx, "ann", expense(1, core.Food))
	if err := s.SetUser(ctx, "ann"); err != nil {
		t.Fatal(err)
	}

	gate, started := make(chan struct{}), make(chan struct{})
	store.mu.Lock()
	store.gate, store.started = gate, started
	store.mu.Unlock()

	slow := make(chan error, 1)
	go func() { slow <- s.Load(ctx) }()
	<-started

	// The slow load already read one transaction. A newer load sees two.
	_, _ = store.Store.CreateTransaction(ctx, "ann", expense(2, core.Food))
	if err := s.Load(ctx); err != nil {
		t.Fatalf("fast load: %v", err)
	}
	close(gate)

	if err := <-slow; !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	if got := len(s.Snapshot().Transactions); got != 2 {
		t.Fatalf("stale load overwrote newer state: %d transactions", got)
	}
}

func TestSession_MutationDuringLoadWins(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := New(store, clock)
	if err := s.SetUser(ctx, "ann"); err != nil {
		t.Fatal(err)
	}

	gate, started := make(chan struct{}), make(chan struct{})
	store.mu.Lock()
	store.gate, store.started = gate, started
	store.mu.Unlock()

	pending := make(chan error, 1)
	go func() { pending <- s.Load(ctx) }()
	<-started

	// The load already read an empty ledger when the add commits.
	tx, err := s.AddTransaction(ctx, expense(10, core.Food))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	close(gate)

	if err := <-pending; !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != tx.ID {
		t.Fatalf("committed add lost: %+v", snap.Transactions)
	}
	if snap.Loading {
		t.Fatal("session still reports loading after the load landed")
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(s.Snapshot().Transactions); got != 1 {
		t.Fatalf("reload: %d transactions, want 1", got)
	}
}

func TestSession_LimitDuringLoadWins(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := New(store, clock)
	if err := s.SetUser(ctx, "ann"); err != nil {
		t.Fatal(err)
	}

	gate, started := make(chan struct{}), make(chan struct{})
	store.mu.Lock()
	store.gate, store.started = gate, started
	store.mu.Unlock()

	pending := make(chan error, 1)
	go func() { pending <- s.Load(ctx) }()
	<-started

	if err := s.SetBudgetLimit(ctx, core.Food, 900); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	close(gate)

	if err := <-pending; !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	if got := s.Snapshot().Limits[core.Food]; got != 900 {
		t.Fatalf("food limit = %v, want 900", got)
	}
}

func TestSession_LoadFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.listErr = errors.New("timeout")
	s := New(store, clock)

	if err := s.SetUser(ctx, "ann"); err == nil {
		t.Fatal("expected load error")
	}
	if s.UserID() != "ann" || s.Snapshot().Loading {
		t.Fatalf("unexpected state after failed load: %+v", s.Snapshot())
	}

	store.listErr = nil
	if err := s.EnsureLoaded(ctx); err != nil {
		t.Fatalf("EnsureLoaded retry: %v", err)
	}
}

func TestSession_WatchFollowsIdentity(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	_, _ = store.Store.CreateTransaction(ctx, "ann", expense(5, core.Transport))

	provider := auth.NewLocalProvider(nil)
	s := New(store, clock)
	stop := s.Watch(ctx, provider)
	defer stop()

	if s.UserID() != "" {
		t.Fatal("session should start signed out")
	}
	provider.Restore(auth.User{ID: "ann", Email: "ann"})
	if s.UserID() != "ann" || len(s.Snapshot().Transactions) != 1 {
		t.Fatalf("sign in not applied: %+v", s.Snapshot())
	}
	provider.Expire()
	if s.UserID() != "" || len(s.Snapshot().Transactions) != 0 {
		t.Fatalf("expiry not applied: %+v", s.Snapshot())
	}
}
