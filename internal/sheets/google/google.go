package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	ports "expensetracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column layout of the mirror sheet: date, amount, category, description, ref.
const refColumn = "E"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.ExpenseWriter = (*Client)(nil)

// New creates a Sheets client writing to sheetName in spreadsheetID.
// opts are passed to the Sheets service; NewFromEnv supplies credentials.
func New(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}
	if logger == nil {
		logger = log.Discard()
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// NewFromEnv creates a client authenticated with service account credentials
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	return New(ctx, spreadsheetID, sheetName, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func credentialsFromEnv() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Append adds one row for e unless a row tagged with ref already exists.
func (c *Client) Append(ctx context.Context, ref string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	if row, ok, err := c.findRef(ctx, ref); err != nil {
		return "", err
	} else if ok {
		c.logger.InfoContext(ctx, "Expense already mirrored", log.FieldMessageID, ref, "row", row)
		return row, nil
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, refColumn)
	vr := &gsheet.ValueRange{Values: [][]any{{
		e.Date.String(), e.Amount.String(), string(e.Category), e.Description, ref,
	}}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	row := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		row = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Expense mirrored", log.FieldMessageID, ref, "row", row)
	return row, nil
}

func (c *Client) findRef(ctx context.Context, ref string) (string, bool, error) {
	if ref == "" {
		return "", false, nil
	}
	rng := fmt.Sprintf("%s!%s:%s", c.sheetName, refColumn, refColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == ref {
			return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, i+1, refColumn, i+1), true, nil
		}
	}
	return "", false, nil
}
