// Package google exports records to a Google Sheets spreadsheet through a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/sheets"
)

var _ sheets.Exporter = (*Client)(nil)

// Config selects the spreadsheet and the credentials. One of
// ServiceAccountJSON and ServiceAccountFile is required.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger

	// serialises row lookups with the writes that depend on them
	mu sync.Mutex
}

func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newWithService(svc, cfg, logger), nil
}

func newWithService(svc *gsheet.Service, cfg Config, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c *Client) idColumn(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids of %s: %w", c.sheet, err)
	}
	return resp.Values, nil
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:I%d", c.sheet, row, row)
}

// Upsert implements sheets.Exporter.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}

	if row := sheets.RowIndex(ids, t.ID); row > 0 {
		vr := &gsheet.ValueRange{Values: [][]any{sheets.Row(t)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(row), vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		c.logger.DebugContext(ctx, "Updated spreadsheet row", applog.FieldTransactionID, t.ID, "row", row)
		return nil
	}

	values := [][]any{sheets.Row(t)}
	if len(ids) == 0 {
		values = append([][]any{sheets.Header}, values...)
	}
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheet+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	c.logger.DebugContext(ctx, "Appended spreadsheet row", applog.FieldTransactionID, t.ID)
	return nil
}

// Remove implements sheets.Exporter. The row is cleared, not deleted, so
// other rows keep their positions.
func (c *Client) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	row := sheets.RowIndex(ids, id)
	if row == 0 {
		c.logger.DebugContext(ctx, "No spreadsheet row to clear", applog.FieldTransactionID, id)
		return nil
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rowRange(row), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear row %d: %w", row, err)
	}
	return nil
}
