package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetwise/internal/core"
)

// Column layout of the Transactions sheet (A..G).
const (
	colID = iota
	colUser
	colType
	colAmount
	colCategory
	colDescription
	colDate
	transactionCols
)

// Column layout of the Budgets sheet (A..C).
const (
	colBudgetUser = iota
	colBudgetCategory
	colBudgetLimit
	budgetCols
)

// parseTransactionRow converts one Transactions row. Blank, header and malformed
// rows report ok=false so callers can skip them.
func parseTransactionRow(row []interface{}) (userID string, tx core.Transaction, ok bool) {
	cols := toStrings(row)
	if len(cols) < transactionCols {
		return "", core.Transaction{}, false
	}
	id := safeGet(cols, colID)
	if id == "" || strings.EqualFold(id, "id") {
		return "", core.Transaction{}, false
	}
	amount, ok := parseAmount(safeGet(cols, colAmount))
	if !ok {
		return "", core.Transaction{}, false
	}
	date, err := time.Parse(time.RFC3339, safeGet(cols, colDate))
	if err != nil {
		return "", core.Transaction{}, false
	}
	tx = core.Transaction{
		ID:          id,
		Type:        core.TransactionType(strings.ToLower(safeGet(cols, colType))),
		Amount:      amount,
		Category:    core.Category(strings.ToLower(safeGet(cols, colCategory))),
		Description: safeGet(cols, colDescription),
		Date:        date,
	}
	if !tx.Type.IsValid() {
		return "", core.Transaction{}, false
	}
	return safeGet(cols, colUser), tx, true
}

// transactionRow is the inverse of parseTransactionRow.
func transactionRow(userID string, tx core.Transaction) []interface{} {
	return []interface{}{
		tx.ID,
		userID,
		string(tx.Type),
		tx.Amount,
		string(tx.Category),
		tx.Description,
		tx.Date.Format(time.RFC3339),
	}
}

func parseBudgetRow(row []interface{}) (userID string, c core.Category, limit float64, ok bool) {
	cols := toStrings(row)
	if len(cols) < budgetCols {
		return "", "", 0, false
	}
	userID = safeGet(cols, colBudgetUser)
	if userID == "" || strings.EqualFold(userID, "user") {
		return "", "", 0, false
	}
	limit, ok = parseAmount(safeGet(cols, colBudgetLimit))
	if !ok {
		return "", "", 0, false
	}
	return userID, core.Category(strings.ToLower(safeGet(cols, colBudgetCategory))), limit, true
}

func budgetRow(userID string, c core.Category, limit float64) []interface{} {
	return []interface{}{userID, string(c), limit}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount accepts numbers formatted with either decimal separator.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
