// Package google mirrors ledger rows into a Google Sheets spreadsheet with
// one tab per transaction kind. Column A holds the transaction ID.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"tracker/internal/core"
	applog "tracker/internal/log"
	ports "tracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.TransactionSink = (*Client)(nil)

// Config selects the spreadsheet, its tabs and the service account.
type Config struct {
	SpreadsheetID   string
	ExpensesSheet   string
	IncomeSheet     string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[core.Kind]string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// New authenticates with the service account in cfg and returns a client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	credentials := []byte(cfg.CredentialsJSON)
	if len(credentials) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("missing service account credentials")
		}
		var err error
		credentials, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	expenses := cfg.ExpensesSheet
	if expenses == "" {
		expenses = "Expenses"
	}
	income := cfg.IncomeSheet
	if income == "" {
		income = "Income"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		tabs:          map[core.Kind]string{core.KindExpense: expenses, core.KindIncome: income},
		sheetIDs:      make(map[string]int64),
	}
}

func (c *Client) tab(kind core.Kind) (string, error) {
	name, ok := c.tabs[kind]
	if !ok {
		return "", core.ErrUnknownKind
	}
	return name, nil
}

// Append adds tx as a new row unless its ID is already in the tab.
func (c *Client) Append(ctx context.Context, tx core.Transaction) error {
	tab, err := c.tab(tx.Type)
	if err != nil {
		return err
	}
	ids, err := c.readIDs(ctx, tab)
	if err != nil {
		return err
	}
	if indexOf(ids, tx.ID) >= 0 {
		slog.DebugContext(ctx, "Row already mirrored",
			applog.FieldComponent, applog.ComponentSheets, applog.FieldID, tx.ID)
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(tx)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tab+"!A:E", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Row appended",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldType, tx.Type,
		applog.FieldID, tx.ID)
	return nil
}

// Delete removes the row whose column A equals id.
func (c *Client) Delete(ctx context.Context, kind core.Kind, id string) error {
	tab, err := c.tab(kind)
	if err != nil {
		return err
	}
	ids, err := c.readIDs(ctx, tab)
	if err != nil {
		return err
	}
	row := indexOf(ids, id)
	if row < 0 {
		return nil
	}
	sheetID, err := c.sheetID(ctx, tab)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
					// Zero is a valid sheet ID and start row.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", row+1, tab, err)
	}
	slog.InfoContext(ctx, "Row deleted",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldType, kind,
		applog.FieldID, id)
	return nil
}

// Clear empties the tab of the given kind.
func (c *Client) Clear(ctx context.Context, kind core.Kind) error {
	tab, err := c.tab(kind)
	if err != nil {
		return err
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tab+"!A:E", &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Tab cleared",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldType, kind)
	return nil
}

// IDs returns the non-blank values of column A of the kind's tab.
func (c *Client) IDs(ctx context.Context, kind core.Kind) ([]string, error) {
	tab, err := c.tab(kind)
	if err != nil {
		return nil, err
	}
	ids, err := c.readIDs(ctx, tab)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *Client) readIDs(ctx context.Context, tab string) ([]string, error) {
	rng := tab + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) sheetID(ctx context.Context, tab string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[tab]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			c.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[tab]
	if !ok {
		return 0, fmt.Errorf("tab %q not found", tab)
	}
	return id, nil
}

// rowValues lays out one row: ID, Date, Category or Source, Amount, Description.
func rowValues(tx core.Transaction) []any {
	return []any{tx.ID, tx.Date.String(), tx.Party, tx.Amount.String(), tx.Description}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
