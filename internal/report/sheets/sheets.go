// Package sheets exports transaction lists to a Google Sheets spreadsheet
// using a service account.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashops/internal/core"
	applog "cashops/internal/log"
)

// ErrNotConfigured is returned when no spreadsheet or credentials were
// provided. The HTTP layer maps it to 503 so the rest of the API keeps
// working without a Google setup.
var ErrNotConfigured = errors.New("sheets export not configured")

const dateLayout = "2006-01-02"

// Config selects the target spreadsheet and the credentials source. Either
// CredentialsJSON or CredentialsFile must be set when SpreadsheetID is.
type Config struct {
	SpreadsheetID   string
	SheetName       string // tab name, default "Transactions"
	CredentialsJSON string // inline service account key
	CredentialsFile string // path to a service account key file
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewExporter builds the export client. An empty SpreadsheetID yields a nil
// exporter, which every method treats as not configured.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, nil
	}

	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	logger := slog.Default().With(applog.FieldComponent, applog.ComponentSheets)
	logger.InfoContext(ctx, "Sheets export configured",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", sheetName)
	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("sheets export needs service account credentials")
}

// Export appends the transactions to the configured sheet, one row each,
// after a header row when the sheet is still empty. It returns the number of
// rows written.
func (e *Exporter) Export(ctx context.Context, transactions []core.Transaction) (int, error) {
	if e == nil || e.svc == nil {
		return 0, ErrNotConfigured
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	rng := fmt.Sprintf("%s!A:E", e.sheetName)
	existing, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", e.sheetName, err)
	}

	var values [][]any
	if len(existing.Values) == 0 {
		values = append(values, []any{"Date", "Description", "Category", "Type", "Amount"})
	}
	for _, t := range transactions {
		values = append(values, []any{
			t.Date.Format(dateLayout),
			t.Description,
			t.Category,
			string(t.Kind),
			t.Amount.Float(),
		})
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err = e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append to sheet %s: %w", e.sheetName, err)
	}

	e.logger.InfoContext(ctx, "Exported transactions to sheet",
		"sheet", e.sheetName,
		applog.FieldCount, len(transactions))
	return len(transactions), nil
}
