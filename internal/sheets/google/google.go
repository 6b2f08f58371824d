// Package google mirrors ledger transactions into a Google Sheet. Each
// transaction owns one row, found by its id in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"lifeledger/internal/cache"
	"lifeledger/internal/config"
	"lifeledger/internal/core"
	"lifeledger/internal/sheets"
)

const (
	dateLayout   = "2006-01-02"
	rowCacheSize = 4096
	rowCacheTTL  = time.Hour
)

var headerRow = []any{"ID", "Date", "Type", "Amount", "Account", "Category", "Note", "Subscription"}

var _ sheets.TransactionMirror = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Row numbers by transaction id. Cleared rows keep their position so a
	// cached number stays valid until the id is removed.
	rows *cache.LRUCache[int]
}

// NewFromConfig creates a client authenticated with the configured service
// account.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := loadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rows:          cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
	}
}

// RowCache exposes the row index cache so callers can register it for cleanup.
func (c *Client) RowCache() *cache.LRUCache[int] { return c.rows }

// loadCredentials prefers inline JSON over a credentials file.
func loadCredentials(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Upsert writes tx into its existing row or appends a new one.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return core.ErrEmptyID
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.rowOf(ctx, tx.ID)
	if err != nil {
		return err
	}

	values := [][]any{transactionRow(tx)}
	if row > 0 {
		rng := a1(c.sheetName, fmt.Sprintf("A%d:H%d", row, row))
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Updated mirrored transaction", "id", tx.ID, "row", row)
		return nil
	}

	if c.rows.Size() == 0 {
		empty, err := c.isEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			values = append([][]any{headerRow}, values...)
		}
	}

	rng := a1(c.sheetName, "A:H")
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil {
		if last, ok := lastRowOf(resp.Updates.UpdatedRange); ok {
			c.rows.Set(tx.ID, last)
		}
	}
	slog.DebugContext(ctx, "Appended mirrored transaction", "id", tx.ID, "sheet", c.sheetName)
	return nil
}

// Remove clears the row holding id. Missing rows are not an error.
func (c *Client) Remove(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, err := c.rowOf(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.DebugContext(ctx, "Mirrored transaction already absent", "id", id)
		return nil
	}

	rng := a1(c.sheetName, fmt.Sprintf("A%d:H%d", row, row))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.rows.Delete(id)
	return nil
}

// IDs reads column A and returns every mirrored id, refreshing the row cache
// on the way.
func (c *Client) IDs(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.idColumn(ctx)
	if err != nil {
		return nil, err
	}
	ids, rows := rowIDs(values)
	for i, id := range ids {
		c.rows.Set(id, rows[i])
	}
	return ids, nil
}

// rowOf returns the 1-based row holding id, or 0 if the sheet has none.
func (c *Client) rowOf(ctx context.Context, id string) (int, error) {
	if row, ok := c.rows.Get(id); ok {
		return row, nil
	}
	ids, err := c.idColumn(ctx)
	if err != nil {
		return 0, err
	}
	row := findRow(ids, id)
	if row > 0 {
		c.rows.Set(id, row)
	}
	return row, nil
}

func (c *Client) isEmpty(ctx context.Context) (bool, error) {
	ids, err := c.idColumn(ctx)
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

func (c *Client) idColumn(ctx context.Context) ([][]any, error) {
	rng := a1(c.sheetName, "A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// transactionRow lays a transaction out as columns A through H.
func transactionRow(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Format(dateLayout),
		string(tx.Type),
		tx.Amount.String(),
		tx.AccountID,
		tx.CategoryID,
		tx.Note,
		tx.SubscriptionID,
	}
}

func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// rowIDs returns the non-empty ids below the header with their 1-based rows.
func rowIDs(values [][]any) ([]string, []int) {
	var ids []string
	var rows []int
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" {
			continue
		}
		ids = append(ids, id)
		rows = append(rows, i+1)
	}
	return ids, rows
}

// lastRowOf extracts the final row number from an A1 range such as
// "'Transactions'!A5:H7".
func lastRowOf(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.LastIndex(rng, ":"); i >= 0 {
		rng = rng[i+1:]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// a1 quotes the sheet name so names with spaces or apostrophes stay valid.
func a1(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
