package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"cashops/internal/core"
)

func TestBuildReportTotals(t *testing.T) {
	r := BuildReport(sampleTransactions(), time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	if r.TotalIncome.Cents != 200000 {
		t.Errorf("TotalIncome = %d, want 200000", r.TotalIncome.Cents)
	}
	if r.TotalExpense.Cents != 1550 {
		t.Errorf("TotalExpense = %d, want 1550", r.TotalExpense.Cents)
	}
	if r.TotalBalance.Cents != 198450 {
		t.Errorf("TotalBalance = %d, want 198450", r.TotalBalance.Cents)
	}
}

func TestRenderHTML(t *testing.T) {
	transactions := sampleTransactions()
	transactions = append(transactions, core.Transaction{
		ID:     "t3",
		Amount: core.Money{Cents: 500},
		Kind:   core.Expense,
		// No description: the report shows a placeholder instead.
		Category: "Other",
		Date:     time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	r := BuildReport(transactions, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	if err := RenderHTML(&buf, r); err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Financial Report",
		"2024-03-20",
		"3 transactions",
		"March salary",
		"2000.00",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "198450") {
		t.Error("page contains raw cents instead of formatted amounts")
	}
	if !strings.Contains(html, "—") {
		t.Error("page missing placeholder for empty description")
	}
	if !strings.Contains(html, "1984.50") {
		t.Error("page missing formatted balance")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink closed")
}

func TestRenderHTMLPropagatesWriteErrors(t *testing.T) {
	r := BuildReport(sampleTransactions(), time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	if err := RenderHTML(failingWriter{}, r); err == nil {
		t.Fatal("expected an error from a failing writer")
	}
}
