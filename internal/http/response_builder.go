package http

import (
	"encoding/json"
	"net/http"
	"time"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError logs the internal cause and sends the public part of err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithError(appErr.Internal)
	fields["code"] = appErr.Code
	if appErr.StatusCode >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields.Args()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.Args()...)
	}
	if appErr.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="budgetwise"`)
	}
	writeJSON(w, appErr.StatusCode, appErr)
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type transactionResponse struct {
	core.Transaction
	Info core.CategoryInfo `json:"category_info"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{Transaction: t, Info: core.Describe(t.Category)}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type predictionResponse struct {
	core.Prediction
	Direction core.TrendDirection `json:"direction"`
}

type budgetsResponse struct {
	Budgets []core.BudgetProgress `json:"budgets"`
	Total   float64               `json:"total"`
}

type dashboardResponse struct {
	Period           string                    `json:"period"`
	Summary          core.Summary              `json:"summary"`
	Recent           []transactionResponse     `json:"current_period"`
	CategorySpending map[core.Category]float64 `json:"category_spending"`
	BudgetProgress   []core.BudgetProgress     `json:"budget_progress"`
	MonthlySeries    []core.MonthTotals        `json:"monthly_series"`
	Predictions      []predictionResponse      `json:"predictions"`
	Alerts           []core.Alert              `json:"alerts"`
	PredictedTotal   float64                   `json:"predicted_total"`
	BudgetTotal      float64                   `json:"budget_total"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

func newDashboardResponse(agg core.Aggregation, now time.Time) dashboardResponse {
	preds := make([]predictionResponse, 0, len(agg.Predictions))
	for _, p := range agg.Predictions {
		preds = append(preds, predictionResponse{Prediction: p, Direction: p.Direction()})
	}
	alerts := agg.Alerts
	if alerts == nil {
		alerts = []core.Alert{}
	}
	return dashboardResponse{
		Period:           core.MonthKey(now, now.Location()),
		Summary:          agg.Summary,
		Recent:           newTransactionList(agg.CurrentPeriod),
		CategorySpending: agg.CategorySpending,
		BudgetProgress:   agg.BudgetProgress,
		MonthlySeries:    agg.MonthlySeries,
		Predictions:      preds,
		Alerts:           alerts,
		PredictedTotal:   core.PredictedTotal(agg.Predictions),
		BudgetTotal:      core.BudgetTotal(agg.BudgetProgress),
		GeneratedAt:      now,
	}
}
