// Package memory is the local ledger backend. State lives in process memory and,
// when a directory is configured, is mirrored to one JSON file per user.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"

	"github.com/google/uuid"
)

var _ ledger.Store = (*Store)(nil)

type ledgerFile struct {
	Transactions []core.Transaction `json:"transactions"`
	Limits       core.BudgetLimits  `json:"budget_limits"`
}

type Store struct {
	mu    sync.Mutex
	dir   string
	users map[string]*ledgerFile
}

// New returns a store that keeps everything in memory.
func New() *Store {
	return &Store{users: map[string]*ledgerFile{}}
}

// NewWithDir returns a store that persists each user's ledger to one JSON file in dir.
func NewWithDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := New()
	s.dir = dir
	return s, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	out := append([]core.Transaction(nil), l.Transactions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.load(userID)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := n.WithID(uuid.NewString())
	prev := l.Transactions
	l.Transactions = append([]core.Transaction{tx}, l.Transactions...)
	if err := s.save(userID, l); err != nil {
		l.Transactions = prev
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.load(userID)
	if err != nil {
		return err
	}
	idx := -1
	for i, t := range l.Transactions {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	prev := l.Transactions
	next := make([]core.Transaction, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	l.Transactions = append(next, prev[idx+1:]...)
	if err := s.save(userID, l); err != nil {
		l.Transactions = prev
		return err
	}
	return nil
}

func (s *Store) GetBudgetLimits(_ context.Context, userID string) (core.BudgetLimits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return l.Limits.Clone(), nil
}

func (s *Store) SetBudgetLimit(_ context.Context, userID string, c core.Category, limit float64) error {
	if err := core.ValidateLimit(c, limit); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.load(userID)
	if err != nil {
		return err
	}
	prev, had := l.Limits[c]
	l.Limits[c] = limit
	if err := s.save(userID, l); err != nil {
		if had {
			l.Limits[c] = prev
		} else {
			delete(l.Limits, c)
		}
		return err
	}
	return nil
}

// load returns the user's ledger, reading it from disk on first access.
// Callers hold s.mu.
func (s *Store) load(userID string) (*ledgerFile, error) {
	if l, ok := s.users[userID]; ok {
		return l, nil
	}
	l := &ledgerFile{Limits: core.BudgetLimits{}}
	if s.dir != "" {
		b, err := os.ReadFile(s.path(userID))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read ledger: %w", err)
		default:
			if err := json.Unmarshal(b, l); err != nil {
				return nil, fmt.Errorf("decode ledger: %w", err)
			}
			if l.Limits == nil {
				l.Limits = core.BudgetLimits{}
			}
		}
	}
	s.users[userID] = l
	return l, nil
}

func (s *Store) save(userID string, l *ledgerFile) error {
	if s.dir == "" {
		return nil
	}
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	tmp := s.path(userID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path(userID)); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// path maps a user id to a file name. The digest keeps distinct ids on distinct
// files and never leaves the data dir.
func (s *Store) path(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
