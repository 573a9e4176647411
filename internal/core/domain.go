package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is an immutable ledger record. ID is assigned by the store.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      float64         `json:"amount"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
	}

	// NewTransaction is a transaction that has not been persisted yet.
	NewTransaction struct {
		Type        TransactionType `json:"type"`
		Amount      float64         `json:"amount"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
	}

	// BudgetLimits maps an expense category to its monthly ceiling. It is sparse:
	// missing categories fall back to DefaultLimit.
	BudgetLimits map[Category]float64
)

var (
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrCategoryMismatch  = errors.New("category does not match transaction type")
	ErrZeroDate          = errors.New("date cannot be zero")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrNegativeLimit     = errors.New("budget limit cannot be negative")
	ErrNotBudgetCategory = errors.New("category does not carry a budget limit")
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// Validate checks the entry-boundary rules. The engine never calls it.
func (n NewTransaction) Validate() error {
	if !n.Type.IsValid() {
		return ErrInvalidType
	}
	if n.Amount <= 0 {
		return ErrInvalidAmount
	}
	info, ok := Lookup(n.Category)
	if !ok {
		return ErrUnknownCategory
	}
	if info.Kind != n.Type && info.Key != Other {
		return ErrCategoryMismatch
	}
	if n.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(n.Description)) > 200 {
		return ErrDescriptionLength
	}
	return nil
}

// WithID returns the canonical record for n.
func (n NewTransaction) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Type:        n.Type,
		Amount:      n.Amount,
		Category:    n.Category,
		Description: strings.TrimSpace(n.Description),
		Date:        n.Date,
	}
}

// ValidateLimit checks a budget limit update.
func ValidateLimit(c Category, limit float64) error {
	if !IsBudgetCategory(c) {
		return ErrNotBudgetCategory
	}
	if limit < 0 {
		return ErrNegativeLimit
	}
	return nil
}

// Clone returns a copy of the limits that is safe to mutate.
func (b BudgetLimits) Clone() BudgetLimits {
	out := make(BudgetLimits, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
