package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetwise/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets values API the client uses.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}
}

var rowRange = regexp.MustCompile(`^[A-Z](\d+):[A-Z](\d+)$`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rest, found := strings.Cut(r.URL.Path, "/values/")
	if !found {
		http.NotFound(w, r)
		return
	}
	action := ""
	for _, a := range []string{"append", "clear"} {
		if trimmed, ok := strings.CutSuffix(rest, ":"+a); ok {
			action, rest = a, trimmed
		}
	}
	sheet, cells, _ := strings.Cut(rest, "!")

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rest, "values": f.sheets[sheet]})
	case action == "append":
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.sheets[sheet] = append(f.sheets[sheet], vr.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case action == "clear":
		row := rowIndex(cells)
		f.sheets[sheet][row] = []interface{}{}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.sheets[sheet][rowIndex(cells)] = vr.Values[0]
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func rowIndex(cells string) int {
	m := rowRange.FindStringSubmatch(cells)
	if m == nil {
		return -1
	}
	n, _ := strconv.Atoi(m[1])
	return n - 1
}

func newTestClient(t *testing.T, seed map[string][][]interface{}) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{sheets: seed}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sid"}), fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "sid"}
	if _, err := c.ListTransactions(context.Background(), "u"); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestClient_TransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t, map[string][][]interface{}{
		"Transactions": {
			{"ID", "User", "Type", "Amount", "Category", "Description", "Date"},
			{"old", "ann", "expense", 30.0, "food", "groceries", "2024-01-05T00:00:00Z"},
			{"bob1", "bob", "expense", 99.0, "food", "", "2024-01-06T00:00:00Z"},
		},
		"Budgets": {},
	})

	created, err := c.CreateTransaction(ctx, "ann", core.NewTransaction{
		Type: core.Income, Amount: 1500, Category: core.Salary, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := c.ListTransactions(ctx, "ann")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != created.ID || list[1].ID != "old" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := c.DeleteTransaction(ctx, "ann", "bob1"); err != nil {
		t.Fatalf("delete foreign id: %v", err)
	}
	if len(fake.sheets["Transactions"][2]) == 0 {
		t.Fatal("deleting another user's transaction cleared the row")
	}
	if err := c.DeleteTransaction(ctx, "ann", "old"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = c.ListTransactions(ctx, "ann")
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
}

func TestClient_CreateValidates(t *testing.T) {
	c, fake := newTestClient(t, map[string][][]interface{}{"Transactions": {}})
	_, err := c.CreateTransaction(context.Background(), "ann", core.NewTransaction{Type: core.Expense, Amount: -1, Category: core.Food, Date: time.Now()})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(fake.sheets["Transactions"]) != 0 {
		t.Fatal("invalid transaction was written")
	}
}

func TestClient_BudgetLimits(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t, map[string][][]interface{}{
		"Budgets": {
			{"User", "Category", "Limit"},
			{"ann", "food", 400.0},
			{"bob", "food", 10.0},
		},
	})

	if err := c.SetBudgetLimit(ctx, "ann", core.Food, 450); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.SetBudgetLimit(ctx, "ann", core.Bills, 90); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(fake.sheets["Budgets"]) != 4 {
		t.Fatalf("expected one appended row, got %d rows", len(fake.sheets["Budgets"]))
	}

	limits, err := c.GetBudgetLimits(ctx, "ann")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(limits) != 2 || limits[core.Food] != 450 || limits[core.Bills] != 90 {
		t.Fatalf("unexpected limits: %v", limits)
	}
}
