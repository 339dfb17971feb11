package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"cashops/internal/core"
)

// reportTemplate is the printable report. Styling is deliberately minimal:
// the page is meant for the browser's print dialog, not for navigation.
var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	"day":   func(t time.Time) string { return t.Format("2006-01-02") },
	"dash": func(s string) string {
		if s == "" {
			return "—"
		}
		return s
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Financial Report</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #111; }
h1 { font-size: 1.4rem; }
.totals { display: flex; gap: 2rem; margin: 1rem 0; }
.totals div { border: 1px solid #ccc; padding: 0.5rem 1rem; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: 0.35rem 0.6rem; text-align: left; }
td.amount { text-align: right; font-variant-numeric: tabular-nums; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>Financial Report</h1>
<p>Generated {{day .GeneratedAt}} · {{len .Transactions}} transactions</p>
<div class="totals">
<div><strong>Income</strong><br>{{money .TotalIncome}}</div>
<div><strong>Expenses</strong><br>{{money .TotalExpense}}</div>
<div><strong>Balance</strong><br>{{money .TotalBalance}}</div>
</div>
<table>
<thead>
<tr><th>Date</th><th>Description</th><th>Category</th><th>Type</th><th>Amount</th></tr>
</thead>
<tbody>
{{range .Transactions}}<tr>
<td>{{day .Date}}</td>
<td>{{dash .Description}}</td>
<td>{{.Category}}</td>
<td>{{.Kind}}</td>
<td class="amount">{{money .Amount}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// Report is the data behind the printable report page.
type Report struct {
	GeneratedAt  time.Time
	TotalIncome  core.Money
	TotalExpense core.Money
	TotalBalance core.Money
	Transactions []core.Transaction
}

// BuildReport assembles the printable report from a transaction list.
func BuildReport(transactions []core.Transaction, now time.Time) Report {
	r := Report{GeneratedAt: now.UTC(), Transactions: transactions}
	for _, t := range transactions {
		switch t.Kind {
		case core.Income:
			r.TotalIncome.Cents += t.Amount.Cents
		case core.Expense:
			r.TotalExpense.Cents += t.Amount.Cents
		}
	}
	r.TotalBalance.Cents = r.TotalIncome.Cents - r.TotalExpense.Cents
	return r
}

// RenderHTML writes the report as a standalone HTML page.
func RenderHTML(w io.Writer, r Report) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
