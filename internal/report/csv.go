// Package report renders transaction lists into exchange formats: CSV for
// download and re-import, HTML for the printable report.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cashops/internal/core"
)

// csvHeader is the exported column order. Import is tolerant of column order
// and resolves columns by header name instead.
var csvHeader = []string{"Date", "Description", "Category", "Type", "Amount"}

const csvDateLayout = "2006-01-02"

// csvDateLayouts are the date formats accepted on import, tried in order.
var csvDateLayouts = []string{
	csvDateLayout,
	"2006/01/02",
	"02/01/2006",
	time.RFC3339,
}

// Row is one parsed import record. Amount is always positive; polarity comes
// from Kind.
type Row struct {
	Date        time.Time
	Amount      core.Money
	Kind        core.Kind
	Category    string
	Description string
}

// WriteCSV writes the transactions as a CSV document with a header row.
// A document produced here parses back through ParseCSV with identical
// date, description, category, kind and amount values.
func WriteCSV(w io.Writer, transactions []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range transactions {
		record := []string{
			t.Date.Format(csvDateLayout),
			t.Description,
			t.Category,
			string(t.Kind),
			t.Amount.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads a CSV document into import rows. The first record must be a
// header naming at least a date and an amount column; the remaining known
// columns are resolved by name, case-insensitively. The first malformed row
// aborts the whole parse so a bad file never half-imports.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv document")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, errors.New("csv document has no data rows")
	}
	return rows, nil
}

// columns maps logical fields to record indices; -1 means the column is
// absent.
type columns struct {
	date, description, category, kind, amount int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{date: -1, description: -1, category: -1, kind: -1, amount: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "description", "note", "notes":
			cols.description = i
		case "category":
			cols.category = i
		case "type", "kind":
			cols.kind = i
		case "amount", "value":
			cols.amount = i
		}
	}
	if cols.date == -1 {
		return cols, errors.New("csv header has no date column")
	}
	if cols.amount == -1 {
		return cols, errors.New("csv header has no amount column")
	}
	return cols, nil
}

func parseRecord(record []string, cols columns) (Row, error) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseDate(field(cols.date))
	if err != nil {
		return Row{}, err
	}
	cents, err := core.ParseAmountToCents(field(cols.amount))
	if err != nil {
		return Row{}, fmt.Errorf("amount %q: %w", field(cols.amount), err)
	}

	return Row{
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Kind:        core.ParseKind(field(cols.kind)),
		Category:    field(cols.category),
		Description: field(cols.description),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	for _, layout := range csvDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return core.Day(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: %w", s, core.ErrInvalidDate)
}
