package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTransaction_Validate(t *testing.T) {
	valid := NewTransaction{Type: Expense, Amount: 12.5, Category: Food, Description: "lunch", Date: testNow}

	tests := []struct {
		name   string
		mutate func(*NewTransaction)
		want   error
	}{
		{name: "valid", mutate: func(*NewTransaction) {}},
		{name: "bad type", mutate: func(n *NewTransaction) { n.Type = "transfer" }, want: ErrInvalidType},
		{name: "zero amount", mutate: func(n *NewTransaction) { n.Amount = 0 }, want: ErrInvalidAmount},
		{name: "negative amount", mutate: func(n *NewTransaction) { n.Amount = -3 }, want: ErrInvalidAmount},
		{name: "unknown category", mutate: func(n *NewTransaction) { n.Category = "crypto" }, want: ErrUnknownCategory},
		{name: "income category on expense", mutate: func(n *NewTransaction) { n.Category = Salary }, want: ErrCategoryMismatch},
		{name: "other on income", mutate: func(n *NewTransaction) { n.Type = Income; n.Category = Other }},
		{name: "zero date", mutate: func(n *NewTransaction) { n.Date = time.Time{} }, want: ErrZeroDate},
		{name: "long description", mutate: func(n *NewTransaction) { n.Description = strings.Repeat("x", 201) }, want: ErrDescriptionLength},
		{name: "empty description", mutate: func(n *NewTransaction) { n.Description = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			err := n.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewTransaction_WithID(t *testing.T) {
	n := NewTransaction{Type: Income, Amount: 10, Category: Salary, Description: "  bonus ", Date: testNow}
	got := n.WithID("abc")
	if got.ID != "abc" || got.Description != "bonus" || got.Amount != 10 || !got.Date.Equal(testNow) {
		t.Errorf("WithID() = %+v", got)
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		category Category
		limit    float64
		want     error
	}{
		{Food, 0, nil},
		{Other, 1200, nil},
		{Food, -1, ErrNegativeLimit},
		{Education, 50, ErrNotBudgetCategory},
		{Salary, 50, ErrNotBudgetCategory},
	}
	for _, tt := range tests {
		if err := ValidateLimit(tt.category, tt.limit); !errors.Is(err, tt.want) {
			t.Errorf("ValidateLimit(%s, %v) = %v, want %v", tt.category, tt.limit, err, tt.want)
		}
	}
}

func TestBudgetLimits_Clone(t *testing.T) {
	orig := BudgetLimits{Food: 100}
	c := orig.Clone()
	c[Food] = 5
	if orig[Food] != 100 {
		t.Error("Clone shares storage with the original")
	}
}

func TestCategoryRegistry(t *testing.T) {
	if DefaultLimit(Education) != 200 {
		t.Errorf("DefaultLimit(education) = %v, want 200", DefaultLimit(Education))
	}
	if IsBudgetCategory(Education) {
		t.Error("education should not carry budget progress")
	}
	if DefaultLimit(Salary) != 0 {
		t.Errorf("DefaultLimit(salary) = %v, want 0", DefaultLimit(Salary))
	}
	if got := Describe("nope"); got.Name != "Unknown" || got.Key != "nope" {
		t.Errorf("Describe(unknown) = %+v", got)
	}
	if len(Categories()) != 11 {
		t.Errorf("Categories() has %d entries, want 11", len(Categories()))
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"12.34", 12.34, false},
		{"12,34", 12.34, false},
		{"12,346", 12.35, false},
		{"7", 7, false},
		{" 0.5 ", 0.5, false},
		{".99", 0.99, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"+1", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
