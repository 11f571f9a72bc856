package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"keuangan/internal/log"
	ports "keuangan/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the target sheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.TableWriter = (*Client)(nil)

// New creates a Sheets client authenticated as a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		cfg.SheetName = "Keuangan"
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: cfg.SheetName, logger: logger}, nil
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credentialsFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReplaceTable writes rows from A1 and then clears whatever the previous
// table left below them, so readers never see an empty sheet mid-rewrite.
// Values are sent RAW so notes are never evaluated as formulas.
func (c *Client) ReplaceTable(ctx context.Context, rows [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if len(rows) > 0 {
		vr := &gsheet.ValueRange{Values: toValues(rows)}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tableRange(c.sheetName, rows), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update sheet %s: %w", c.sheetName, err)
		}
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, belowRange(c.sheetName, rows), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear stale rows of %s: %w", c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Sheet rewritten", log.FieldRows, max(len(rows)-1, 0), "sheet", c.sheetName)
	return nil
}

// quoteSheet wraps a sheet name for A1 notation, doubling inner quotes.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func tableWidth(rows [][]string) int {
	width := 1
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

// tableRange returns the A1 range covering rows, e.g. 'Keuangan'!A1:I3.
func tableRange(sheet string, rows [][]string) string {
	return fmt.Sprintf("%s!A1:%s%d", quoteSheet(sheet), columnName(tableWidth(rows)), max(len(rows), 1))
}

// belowRange returns the open-ended range starting on the first row after
// rows, e.g. 'Keuangan'!A4:I. With no rows it is the whole sheet.
func belowRange(sheet string, rows [][]string) string {
	if len(rows) == 0 {
		return quoteSheet(sheet)
	}
	return fmt.Sprintf("%s!A%d:%s", quoteSheet(sheet), len(rows)+1, columnName(tableWidth(rows)))
}

// columnName converts a 1-based column index to letters: 1 -> A, 27 -> AA.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		vals := make([]any, len(r))
		for j, v := range r {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}
