package core

import (
	"fmt"
	"sort"
	"time"
)

// seriesLength is how many months MonthlySeries keeps.
const seriesLength = 6

// Aggregate derives every dashboard view from the full transaction history.
//
// It is a pure function: no I/O, no retained state, and identical inputs give
// identical output. All calendar arithmetic happens in now's location.
func Aggregate(txs []Transaction, limits BudgetLimits, now time.Time) Aggregation {
	current := CurrentPeriod(txs, now)
	spending := SpendingByCategory(current)
	progress := Progress(limits, spending)
	predictions := Predict(txs, now)

	return Aggregation{
		CurrentPeriod:    current,
		Summary:          Summarize(current),
		CategorySpending: spending,
		BudgetProgress:   progress,
		MonthlySeries:    MonthlySeries(txs, now.Location()),
		Predictions:      predictions,
		Alerts:           Alerts(predictions, progress),
	}
}

// CurrentPeriod keeps the transactions dated in now's calendar month, in input order.
func CurrentPeriod(txs []Transaction, now time.Time) []Transaction {
	year, month, _ := now.Date()
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		y, m, _ := t.Date.In(now.Location()).Date()
		if y == year && m == month {
			out = append(out, t)
		}
	}
	return out
}

// Summarize totals income and expenses. SavingsRate is 0 when there is no income.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income += t.Amount
		case Expense:
			s.Expenses += t.Amount
		}
	}
	s.Balance = s.Income - s.Expenses
	if s.Income > 0 {
		s.SavingsRate = (s.Income - s.Expenses) / s.Income * 100
	}
	return s
}

// SpendingByCategory sums expenses per category. Categories without spend are absent.
func SpendingByCategory(txs []Transaction) map[Category]float64 {
	spending := make(map[Category]float64)
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		spending[t.Category] += t.Amount
	}
	return spending
}

// Progress builds one record per budget category, in registry order. Stored limits
// win over defaults; limits for other categories are ignored.
func Progress(limits BudgetLimits, spending map[Category]float64) []BudgetProgress {
	out := make([]BudgetProgress, 0, len(budgetCategories))
	for _, c := range budgetCategories {
		limit, ok := limits[c]
		if !ok {
			limit = DefaultLimit(c)
		}
		out = append(out, BudgetProgress{Category: c, Limit: limit, Spent: spending[c]})
	}
	return out
}

// SortProgress returns a copy ordered by uncapped Ratio, highest first.
func SortProgress(progress []BudgetProgress) []BudgetProgress {
	out := append([]BudgetProgress(nil), progress...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ratio() > out[j].Ratio()
	})
	return out
}

// MonthKey is the zero-padded "YYYY-MM" bucket for t in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	y, m, _ := t.In(loc).Date()
	return fmt.Sprintf("%04d-%02d", y, int(m))
}

// MonthlySeries groups the whole history by calendar month and keeps the latest
// six months that have at least one transaction, oldest first.
func MonthlySeries(txs []Transaction, loc *time.Location) []MonthTotals {
	if loc == nil {
		loc = time.Local
	}
	groups := make(map[string]*MonthTotals)
	for _, t := range txs {
		key := MonthKey(t.Date, loc)
		g, ok := groups[key]
		if !ok {
			y, m, _ := t.Date.In(loc).Date()
			g = &MonthTotals{Key: key, Year: y, Month: m}
			groups[key] = g
		}
		if t.Type == Income {
			g.Income += t.Amount
		} else {
			g.Expenses += t.Amount
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > seriesLength {
		keys = keys[len(keys)-seriesLength:]
	}

	out := make([]MonthTotals, 0, len(keys))
	for _, k := range keys {
		g := *groups[k]
		g.Savings = g.Income - g.Expenses
		out = append(out, g)
	}
	return out
}
