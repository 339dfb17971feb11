package http

import (
	"net/http"
	"time"

	"cashops/internal/core"
)

// Chart payloads carry amounts as floats in whole currency units; the exact
// cents stay server-side.
type (
	metricsJSON struct {
		TotalIncome  float64 `json:"totalIncome"`
		TotalExpense float64 `json:"totalExpense"`
		TotalBalance float64 `json:"totalBalance"`

		ExpenseByCategory []categoryAmountJSON `json:"expenseByCategory"`
		IncomeByCategory  []categoryAmountJSON `json:"incomeByCategory"`

		MonthlyData  []monthBucketJSON `json:"monthlyData"`
		TrendData    []trendPointJSON  `json:"trendData"`
		BurnRateData []burnPointJSON   `json:"burnRateData"`
	}

	categoryAmountJSON struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}

	monthBucketJSON struct {
		Name    string  `json:"name"`
		Year    int     `json:"year"`
		Month   int     `json:"month"`
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
	}

	trendPointJSON struct {
		Date    string  `json:"date"`
		Balance float64 `json:"balance"`
	}

	burnPointJSON struct {
		Date    string  `json:"date"`
		Expense float64 `json:"expense"`
	}
)

func toMetricsJSON(m core.Metrics) metricsJSON {
	out := metricsJSON{
		TotalIncome:       m.TotalIncome.Float(),
		TotalExpense:      m.TotalExpense.Float(),
		TotalBalance:      m.TotalBalance.Float(),
		ExpenseByCategory: make([]categoryAmountJSON, 0, len(m.ExpenseByCategory)),
		IncomeByCategory:  make([]categoryAmountJSON, 0, len(m.IncomeByCategory)),
		MonthlyData:       make([]monthBucketJSON, 0, len(m.Monthly)),
		TrendData:         make([]trendPointJSON, 0, len(m.Trend)),
		BurnRateData:      make([]burnPointJSON, 0, len(m.BurnRate)),
	}
	for _, c := range m.ExpenseByCategory {
		out.ExpenseByCategory = append(out.ExpenseByCategory, categoryAmountJSON{Name: c.Name, Amount: c.Amount.Float()})
	}
	for _, c := range m.IncomeByCategory {
		out.IncomeByCategory = append(out.IncomeByCategory, categoryAmountJSON{Name: c.Name, Amount: c.Amount.Float()})
	}
	for _, b := range m.Monthly {
		out.MonthlyData = append(out.MonthlyData, monthBucketJSON{
			Name:    b.Name,
			Year:    b.Year,
			Month:   int(b.Month),
			Income:  b.Income.Float(),
			Expense: b.Expense.Float(),
		})
	}
	for _, p := range m.Trend {
		out.TrendData = append(out.TrendData, trendPointJSON{Date: p.Date.Format(dateLayout), Balance: p.Balance.Float()})
	}
	for _, p := range m.BurnRate {
		out.BurnRateData = append(out.BurnRateData, burnPointJSON{Date: p.Date.Format(dateLayout), Expense: p.Expense.Float()})
	}
	return out
}

// handleMetrics serves the dashboard aggregates, cached per owner until the
// next mutation or TTL expiry.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if ownerID == "" {
		respondError(w, r, core.ErrUnauthorized)
		return
	}

	if cached, ok := s.metricsCache.Get(ownerID); ok {
		respondJSON(w, http.StatusOK, toMetricsJSON(cached))
		return
	}

	metrics, err := s.transactions.Metrics(r.Context(), ownerID, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.metricsCache.Set(ownerID, metrics)
	respondJSON(w, http.StatusOK, toMetricsJSON(metrics))
}
