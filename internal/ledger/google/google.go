// Package google stores ledgers in a Google Sheets spreadsheet. One sheet holds
// every user's transactions, a second one holds budget limits.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"budgetwise/internal/core"
	"budgetwise/internal/ledger"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ledger.Store = (*Client)(nil)

type Config struct {
	SpreadsheetID      string
	TransactionsSheet  string
	BudgetsSheet       string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	budgetsSheet      string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service. Sheet names fall back to
// "Transactions" and "Budgets".
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	txSheet := strings.TrimSpace(cfg.TransactionsSheet)
	if txSheet == "" {
		txSheet = "Transactions"
	}
	budgetSheet := strings.TrimSpace(cfg.BudgetsSheet)
	if budgetSheet == "" {
		budgetSheet = "Budgets"
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     strings.TrimSpace(cfg.SpreadsheetID),
		transactionsSheet: txSheet,
		budgetsSheet:      budgetSheet,
	}
}

// newSheetsService uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := c.read(ctx, fmt.Sprintf("%s!A:G", c.transactionsSheet))
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0)
	for _, row := range rows {
		owner, tx, ok := parseTransactionRow(row)
		if !ok || owner != userID {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	tx := n.WithID(uuid.NewString())
	if err := c.AppendTransaction(ctx, userID, tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// AppendTransaction writes an already-identified record. The mirror worker uses
// it to copy SQLite rows without minting new IDs.
func (c *Client) AppendTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:G", c.transactionsSheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{transactionRow(userID, tx)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.transactionsSheet, err)
	}
	return nil
}

// DeleteTransaction clears the matching row. Rows are never shifted so that other
// writers keep valid row numbers; blank rows are skipped on read.
func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	rows, err := c.read(ctx, fmt.Sprintf("%s!A:B", c.transactionsSheet))
	if err != nil {
		return err
	}
	for i, row := range rows {
		cols := toStrings(row)
		if safeGet(cols, colID) != id || safeGet(cols, colUser) != userID {
			continue
		}
		rng := fmt.Sprintf("%s!A%d:G%d", c.transactionsSheet, i+1, i+1)
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("clear %s: %w", rng, err)
		}
		return nil
	}
	return nil
}

func (c *Client) GetBudgetLimits(ctx context.Context, userID string) (core.BudgetLimits, error) {
	rows, err := c.read(ctx, fmt.Sprintf("%s!A:C", c.budgetsSheet))
	if err != nil {
		return nil, err
	}
	limits := core.BudgetLimits{}
	for _, row := range rows {
		owner, cat, limit, ok := parseBudgetRow(row)
		if !ok || owner != userID {
			continue
		}
		limits[cat] = limit
	}
	return limits, nil
}

func (c *Client) SetBudgetLimit(ctx context.Context, userID string, cat core.Category, limit float64) error {
	if err := core.ValidateLimit(cat, limit); err != nil {
		return err
	}
	rows, err := c.read(ctx, fmt.Sprintf("%s!A:C", c.budgetsSheet))
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{budgetRow(userID, cat, limit)}}
	for i, row := range rows {
		owner, rowCat, _, ok := parseBudgetRow(row)
		if !ok || owner != userID || rowCat != cat {
			continue
		}
		rng := fmt.Sprintf("%s!A%d:C%d", c.budgetsSheet, i+1, i+1)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}
	rng := fmt.Sprintf("%s!A:C", c.budgetsSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.budgetsSheet, err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, rng string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
