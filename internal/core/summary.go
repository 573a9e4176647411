package core

import (
	"encoding/json"
	"math"
	"time"
)

// Summary holds the current-period totals.
type Summary struct {
	Income      float64 `json:"income"`
	Expenses    float64 `json:"expenses"`
	Balance     float64 `json:"balance"`
	SavingsRate float64 `json:"savings_rate"`
}

// MonthTotals is one point of the monthly trend series.
type MonthTotals struct {
	Key      string     `json:"key"` // zero-padded "YYYY-MM"
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Income   float64    `json:"income"`
	Expenses float64    `json:"expenses"`
	Savings  float64    `json:"savings"`
}

// BudgetProgress pairs a category limit with what was spent in the period.
// It is always derived, never stored.
type BudgetProgress struct {
	Category Category
	Limit    float64
	Spent    float64
}

// Ratio is the uncapped spent/limit percentage used for ordering.
func (b BudgetProgress) Ratio() float64 {
	if b.Limit <= 0 {
		if b.Spent > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return b.Spent / b.Limit * 100
}

// Percentage is Ratio clamped to [0, 100].
func (b BudgetProgress) Percentage() float64 {
	return math.Max(0, math.Min(b.Ratio(), 100))
}

func (b BudgetProgress) OverBudget() bool {
	return b.Spent > b.Limit
}

// NearLimit is true from 80% up to the limit itself.
func (b BudgetProgress) NearLimit() bool {
	return b.Percentage() >= 80 && !b.OverBudget()
}

func (b BudgetProgress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Category   Category `json:"category"`
		Limit      float64  `json:"limit"`
		Spent      float64  `json:"spent"`
		Percentage float64  `json:"percentage"`
		OverBudget bool     `json:"over_budget"`
		NearLimit  bool     `json:"near_limit"`
	}{b.Category, b.Limit, b.Spent, b.Percentage(), b.OverBudget(), b.NearLimit()})
}

// Prediction is the naive next-month estimate for one category.
type Prediction struct {
	Category  Category `json:"category"`
	Predicted float64  `json:"predicted"`
	Trend     float64  `json:"trend"`
}

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// Direction buckets Trend with a ±5% dead band.
func (p Prediction) Direction() TrendDirection {
	switch {
	case p.Trend > 5:
		return TrendUp
	case p.Trend < -5:
		return TrendDown
	default:
		return TrendFlat
	}
}

// Alert flags a category whose prediction exceeds 90% of its limit.
type Alert struct {
	Category  Category `json:"category"`
	Predicted float64  `json:"predicted"`
	Limit     float64  `json:"limit"`
}

// Aggregation bundles every derived view of a ledger at a point in time.
type Aggregation struct {
	CurrentPeriod    []Transaction        `json:"current_period"`
	Summary          Summary              `json:"summary"`
	CategorySpending map[Category]float64 `json:"category_spending"`
	BudgetProgress   []BudgetProgress     `json:"budget_progress"`
	MonthlySeries    []MonthTotals        `json:"monthly_series"`
	Predictions      []Prediction         `json:"predictions"`
	Alerts           []Alert              `json:"alerts"`
}
