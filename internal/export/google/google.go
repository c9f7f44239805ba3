// Package google exports tax-report rows to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gigledger/internal/core"
	"gigledger/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

var _ export.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets report writer from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_REPORT_SHEET_NAME
// (default "Tax Report").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportSheet := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if reportSheet == "" {
		reportSheet = "Tax Report"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
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

// AppendReport appends one period summary row to the report sheet.
func (c *Client) AppendReport(ctx context.Context, userID int64, agg core.PeriodAggregate) error {
	row := []interface{}{
		userID,
		agg.Period.Key(),
		agg.GrossIncome.StringFixed(2),
		agg.TaxableIncome.StringFixed(2),
		agg.GrossExpenses.StringFixed(2),
		agg.Reimbursements.StringFixed(2),
		agg.NetExpenses.StringFixed(2),
		agg.TotalMileage.String(),
		agg.MileageValue.StringFixed(2),
		agg.EstimatedTax.StringFixed(2),
		agg.CompletedGigs,
		agg.TotalGigs,
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.reportSheet+"!A:L", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append report row: %w", err)
	}

	slog.InfoContext(ctx, "Appended report row to spreadsheet",
		"user_id", userID,
		"period", agg.Period.Key(),
		"sheet", c.reportSheet)
	return nil
}
