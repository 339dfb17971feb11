package http

import (
	"net/http"
	"time"

	"cashops/internal/core"
)

type recurringJSON struct {
	ID            string `json:"id"`
	Amount        string `json:"amount"`
	Kind          string `json:"type"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	DayOfMonth    int    `json:"dayOfMonth"`
	LastGenerated string `json:"lastGenerated,omitempty"`
}

func toRecurringJSON(d core.RecurringDefinition) recurringJSON {
	out := recurringJSON{
		ID:          d.ID,
		Amount:      d.Amount.String(),
		Kind:        string(d.Kind),
		Category:    d.Category,
		Description: d.Description,
		DayOfMonth:  d.DayOfMonth,
	}
	if d.LastGenerated != nil {
		out.LastGenerated = d.LastGenerated.UTC().Format(time.RFC3339)
	}
	return out
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	defs, err := s.materializer.ListDefinitions(r.Context(), owner(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]recurringJSON, 0, len(defs))
	for _, d := range defs {
		out = append(out, toRecurringJSON(d))
	}
	respondJSON(w, http.StatusOK, map[string]any{"recurring": out})
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.materializer.DeleteDefinition(r.Context(), owner(r), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type recurringCheckResponse struct {
	Processed    int               `json:"processed"`
	Created      int               `json:"created"`
	Transactions []transactionJSON `json:"transactions"`
}

// handleRecurringCheck materializes every due definition of the owner. The
// client calls it on dashboard load; repeating the call within a month is a
// no-op.
func (s *Server) handleRecurringCheck(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	result, err := s.materializer.Run(r.Context(), ownerID, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if result.Created > 0 {
		s.invalidateMetrics(ownerID)
	}
	respondJSON(w, http.StatusOK, recurringCheckResponse{
		Processed:    result.Processed,
		Created:      result.Created,
		Transactions: toTransactionsJSON(result.Transactions),
	})
}
