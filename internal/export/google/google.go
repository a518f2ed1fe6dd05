package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"homesplit/internal/config"
	"homesplit/internal/report"

	ports "homesplit/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// reportHeader is written to row 1 the first time the sheet is used.
var reportHeader = []any{
	"Period", "Expenses", "Payments", "Rent total", "Rent collected",
	"Rent remaining", "Transfers", "Source", "Snapshot by",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

// Ensure interface conformance
var _ ports.ReportExporter = (*Client)(nil)

// NewFromConfig creates a Sheets client from the application configuration.
// Requires a spreadsheet ID plus service account credentials, either inline
// JSON or a file path.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.GoogleSpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing Google spreadsheet ID")
	}

	reportSheet := strings.TrimSpace(cfg.GoogleSheetName)
	if reportSheet == "" {
		reportSheet = "Reports"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg *config.Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.GoogleServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.GoogleServiceAccountFile)

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
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", cfg.GoogleSheetName)
	return service, nil
}

// Export writes one summary row per period to the report sheet. The period in
// column A is the key: an existing row for the same period is overwritten, so
// re-exporting after a ledger change updates in place instead of appending
// duplicates.
func (c *Client) Export(ctx context.Context, r *report.MonthlyReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, err := c.findPeriodRow(ctx, r.Period.String())
	if err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A%d:I%d", c.reportSheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{reportRow(r)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", c.reportSheet, err)
	}

	slog.InfoContext(ctx, "Report exported to sheet",
		"period", r.Period.String(),
		"range", rng)
	return rng, nil
}

// reportRow flattens a report into the sheet's column layout. Money values
// go out as decimal currency units so the sheet can format them.
func reportRow(r *report.MonthlyReport) []any {
	rentTotal, rentCollected, rentRemaining := 0.0, 0.0, 0.0
	if r.RentSummary != nil {
		rentTotal = r.RentSummary.Total.Float()
		rentCollected = r.RentSummary.Collected.Float()
		rentRemaining = r.RentSummary.Remaining.Float()
	}

	return []any{
		r.Period.String(),
		r.Stats.ExpenseTotal.Float(),
		r.Stats.PaymentTotal.Float(),
		rentTotal,
		rentCollected,
		rentRemaining,
		r.Stats.SettlementCount,
		r.Meta.Source,
		r.Meta.SnapshotBy,
	}
}

// findPeriodRow returns the 1-based row holding the given period in column A,
// or the first empty row when the period has not been exported yet. It also
// lays down the header row on a fresh sheet.
func (c *Client) findPeriodRow(ctx context.Context, period string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.reportSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", c.reportSheet, err)
	}

	if len(resp.Values) == 0 {
		if err := c.writeHeader(ctx); err != nil {
			return 0, err
		}
		return 2, nil
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cell, ok := row[0].(string); ok && strings.TrimSpace(cell) == period {
			return i + 1, nil
		}
	}
	return len(resp.Values) + 1, nil
}

func (c *Client) writeHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:I1", c.reportSheet)
	vr := &gsheet.ValueRange{Values: [][]any{reportHeader}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header in sheet %s: %w", c.reportSheet, err)
	}
	return nil
}
