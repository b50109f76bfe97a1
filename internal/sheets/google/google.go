// Package google exports the expense history into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cashbook/internal/config"
	"cashbook/internal/log"
	"cashbook/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// exportColumns spans the six columns of sheets.Header.
const exportColumns = "A:F"

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ sheets.ExpenseExporter = (*Exporter)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, logger: logger.WithComponent(log.ComponentSheets)}
}

// NewFromConfig builds an exporter authenticated with the configured service
// account. Extra client options are appended, which tests use to redirect the
// endpoint.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...goption.ClientOption) (*Exporter, error) {
	id := strings.TrimSpace(cfg.GoogleSpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(opts) == 0 {
		creds, err := credentialsJSON(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, id, logger), nil
}

// credentialsJSON prefers inline JSON, then the file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func credentialsJSON(inline, file string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	file = strings.TrimSpace(file)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// quoteSheet quotes a tab name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// values is the full grid written to the tab, header first.
func values(rows []sheets.ExportRow) [][]any {
	out := make([][]any, 0, len(rows)+1)
	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return out
}

// Export clears the tab and writes the header plus rows from A1.
func (e *Exporter) Export(ctx context.Context, sheet string, rows []sheets.ExportRow) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(sheet) == "" {
		return "", errors.New("missing sheet name")
	}
	tab := quoteSheet(sheet)

	clearRange := tab + "!" + exportColumns
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	grid := values(rows)
	writeRange := fmt.Sprintf("%s!A1:F%d", tab, len(grid))
	vr := &gsheet.ValueRange{Values: grid}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", writeRange, err)
	}

	e.logger.InfoContext(ctx, "Exported expenses to Google Sheets",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(rows),
		log.FieldSheetRef, writeRange)
	return writeRange, nil
}
