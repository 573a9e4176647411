// Package session owns one user's ledger state in memory. Every mutation goes
// through the store first; the in-memory copy is reconciled only on success and
// every read recomputes the aggregation in full.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/ledger"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNoUser    = errors.New("no user signed in")
	ErrStaleLoad = errors.New("load superseded by a newer one")
)

type Session struct {
	store ledger.Store
	now   func() time.Time

	mu       sync.Mutex
	userID   string
	inflight int
	loaded   bool
	// seq advances on every identity change, load start and committed
	// mutation. A load only lands if seq is unchanged since it started.
	seq    uint64
	txs    []core.Transaction
	limits core.BudgetLimits
}

// Snapshot is an immutable view of the session at one instant.
type Snapshot struct {
	UserID       string             `json:"user_id"`
	Loading      bool               `json:"loading"`
	Transactions []core.Transaction `json:"-"`
	Limits       core.BudgetLimits  `json:"-"`
	Aggregation  core.Aggregation   `json:"aggregation"`
	Now          time.Time          `json:"now"`
}

// New returns a signed-out session. A nil clock means time.Now.
func New(store ledger.Store, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{store: store, now: now, limits: core.BudgetLimits{}}
}

// UserID returns the current user or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SetUser switches identity. State is cleared and, for a non-empty id, fully
// reloaded. An empty id signs out.
func (s *Session) SetUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.userID = userID
	s.txs = nil
	s.limits = core.BudgetLimits{}
	s.loaded = false
	// Invalidate any load still in flight for the previous identity.
	s.seq++
	s.mu.Unlock()

	if userID == "" {
		return nil
	}
	return s.Load(ctx)
}

// Load fetches transactions and limits concurrently. If another load, an
// identity change or a committed mutation happens meanwhile, the result is
// dropped with ErrStaleLoad and the caller should load again.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return ErrNoUser
	}
	s.seq++
	seq := s.seq
	userID := s.userID
	s.inflight++
	s.mu.Unlock()

	var (
		txs    []core.Transaction
		limits core.BudgetLimits
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		limits, err = s.store.GetBudgetLimits(gctx, userID)
		if err != nil {
			return fmt.Errorf("get budget limits: %w", err)
		}
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq != s.seq || userID != s.userID {
		slog.DebugContext(ctx, "Discarding stale ledger load", "user_id", userID, "seq", seq)
		return ErrStaleLoad
	}
	if err != nil {
		return err
	}
	if limits == nil {
		limits = core.BudgetLimits{}
	}
	s.txs = txs
	s.limits = limits
	s.loaded = true
	return nil
}

// EnsureLoaded loads once for the current user. It is a no-op after a
// successful load.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded, userID := s.loaded, s.userID
	s.mu.Unlock()
	if userID == "" {
		return ErrNoUser
	}
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

// AddTransaction persists n and prepends the store's canonical record.
func (s *Session) AddTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	userID := s.UserID()
	if userID == "" {
		return core.Transaction{}, ErrNoUser
	}
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.CreateTransaction(ctx, userID, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == userID {
		s.txs = append([]core.Transaction{tx}, s.txs...)
		s.seq++
	}
	return tx, nil
}

// DeleteTransaction removes id. An unknown id is not an error.
func (s *Session) DeleteTransaction(ctx context.Context, id string) error {
	userID := s.UserID()
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != userID {
		return nil
	}
	kept := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.txs = kept
	s.seq++
	return nil
}

// SetBudgetLimit upserts a limit for one budget category.
func (s *Session) SetBudgetLimit(ctx context.Context, c core.Category, limit float64) error {
	userID := s.UserID()
	if userID == "" {
		return ErrNoUser
	}
	if err := core.ValidateLimit(c, limit); err != nil {
		return err
	}
	if err := s.store.SetBudgetLimit(ctx, userID, c, limit); err != nil {
		return fmt.Errorf("set budget limit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == userID {
		next := s.limits.Clone()
		next[c] = limit
		s.limits = next
		s.seq++
	}
	return nil
}

// Snapshot recomputes every derived view from the current state and clock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	txs := append([]core.Transaction(nil), s.txs...)
	limits := s.limits.Clone()
	userID, loading := s.userID, s.userID != "" && s.inflight > 0
	s.mu.Unlock()

	now := s.now()
	return Snapshot{
		UserID:       userID,
		Loading:      loading,
		Transactions: txs,
		Limits:       limits,
		Aggregation:  core.Aggregate(txs, limits, now),
		Now:          now,
	}
}

// Watch follows provider's identity transitions until the returned stop func is
// called. The current identity is applied immediately.
func (s *Session) Watch(ctx context.Context, provider auth.Provider) (stop func()) {
	return provider.Subscribe(func(u *auth.User) {
		id := ""
		if u != nil {
			id = u.ID
		}
		if err := s.SetUser(ctx, id); err != nil && !errors.Is(err, ErrStaleLoad) {
			slog.ErrorContext(ctx, "Failed to load ledger after identity change", "user_id", id, "error", err)
		}
	})
}
