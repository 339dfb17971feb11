package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cashops/internal/core"
	"cashops/internal/services"
)

type budgetJSON struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Period   string `json:"period"`
	Spent    string `json:"spent"`
}

func toBudgetJSON(status services.BudgetStatus) budgetJSON {
	return budgetJSON{
		ID:       status.Budget.ID,
		Category: status.Budget.Category,
		Limit:    status.Budget.Limit.String(),
		Period:   status.Budget.Period,
		Spent:    status.Spent.String(),
	}
}

type upsertBudgetRequest struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Period   string `json:"period"`
}

// handleListBudgets returns the owner's budgets joined with the expense
// totals of the current month, which is what the budget cards display.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.budgets.ListWithSpend(r.Context(), owner(r), time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]budgetJSON, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, toBudgetJSON(status))
	}
	respondJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req upsertBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	cents, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ownerID := owner(r)
	b, err := s.budgets.Upsert(r.Context(), ownerID, req.Category, core.Money{Cents: cents}, req.Period)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateMetrics(ownerID)
	respondJSON(w, http.StatusOK, toBudgetJSON(services.BudgetStatus{Budget: b}))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if err := s.budgets.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateMetrics(ownerID)
	respondJSON(w, http.StatusNoContent, nil)
}
