package core

import "time"

// predictionWindow is the number of calendar months, including the current one,
// that feed a prediction.
const predictionWindow = 3

// alertThreshold is the share of a limit a prediction may reach before it alerts.
const alertThreshold = 0.9

// MonthsAgo counts whole calendar months between t and now, in now's location.
// It is negative for dates after now's month.
func MonthsAgo(t, now time.Time) int {
	ny, nm, _ := now.Date()
	ty, tm, _ := t.In(now.Location()).Date()
	return (ny-ty)*12 + int(nm-tm)
}

// Predict estimates next month's spend per category from the expenses of the
// current and two previous calendar months.
//
// Amounts keep their input order, which is newest first when they come from a
// store. Trend compares the last amount of that order against the first one, so
// with newest-first input a positive trend means spending went down. That reading
// is kept as is.
func Predict(txs []Transaction, now time.Time) []Prediction {
	var order []Category
	amounts := make(map[Category][]float64)
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		ago := MonthsAgo(t.Date, now)
		if ago < 0 || ago >= predictionWindow {
			continue
		}
		if _, seen := amounts[t.Category]; !seen {
			order = append(order, t.Category)
		}
		amounts[t.Category] = append(amounts[t.Category], t.Amount)
	}

	out := make([]Prediction, 0, len(order))
	for _, c := range order {
		out = append(out, Prediction{
			Category:  c,
			Predicted: mean(amounts[c]),
			Trend:     trend(amounts[c]),
		})
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(max(len(values), 1))
}

// trend is the percentage change from the first to the last value. It is 0 for
// fewer than two values and when the first value is 0; amounts are always
// positive, so the zero case only guards against dividing by zero.
func trend(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return 0
	}
	first, last := values[0], values[len(values)-1]
	return (last - first) / first * 100
}

// Alerts returns the predictions that exceed 90% of their category's limit.
// Predictions for categories without progress are never flagged.
func Alerts(predictions []Prediction, progress []BudgetProgress) []Alert {
	limits := make(map[Category]float64, len(progress))
	for _, b := range progress {
		limits[b.Category] = b.Limit
	}
	out := make([]Alert, 0)
	for _, p := range predictions {
		limit, ok := limits[p.Category]
		if !ok || p.Predicted <= limit*alertThreshold {
			continue
		}
		out = append(out, Alert{Category: p.Category, Predicted: p.Predicted, Limit: limit})
	}
	return out
}

// PredictedTotal sums every category prediction.
func PredictedTotal(predictions []Prediction) float64 {
	var total float64
	for _, p := range predictions {
		total += p.Predicted
	}
	return total
}

// BudgetTotal sums every category limit.
func BudgetTotal(progress []BudgetProgress) float64 {
	var total float64
	for _, b := range progress {
		total += b.Limit
	}
	return total
}
