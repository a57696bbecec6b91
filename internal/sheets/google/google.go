// Package google writes month summaries to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"envelope/internal/core"
	ports "envelope/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
}

var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet. Credentials come
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, summarySheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if summarySheet = strings.TrimSpace(summarySheet); summarySheet == "" {
		summarySheet = "Summary"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		summarySheet:  summarySheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
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

// UpsertSummary writes the period's row, replacing an existing row for the
// same year/month. Rows are keyed on columns A (year) and B (month).
func (c *Client) UpsertSummary(ctx context.Context, s core.MonthSummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:B", c.summarySheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read summary keys from %s: %w", c.summarySheet, err)
	}

	// Default to a new row after the last one; overwrite on a key match.
	row := len(resp.Values) + 1
	for i, existing := range resp.Values {
		if len(existing) < 2 {
			continue
		}
		y, yErr := strconv.Atoi(strings.TrimSpace(fmt.Sprint(existing[0])))
		m, mErr := strconv.Atoi(strings.TrimSpace(fmt.Sprint(existing[1])))
		if yErr == nil && mErr == nil && y == s.Year && m == s.Month {
			row = i + 1
			break
		}
	}

	dataRange := fmt.Sprintf("%s!A%d:G%d", c.summarySheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		s.Year,
		s.Month,
		s.ExpectedBalance.String(),
		s.ActualBalance.String(),
		s.TotalIncome.String(),
		s.TotalSpent.String(),
		s.TotalAllocated.String(),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write summary row to %s: %w", c.summarySheet, err)
	}

	slog.InfoContext(ctx, "Month summary exported",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.summarySheet,
		"row", row,
		"month", s.Month,
		"year", s.Year)

	return dataRange, nil
}
