package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cashops/internal/core"
	"cashops/internal/services"
)

const dateLayout = "2006-01-02"

// transactionJSON is the wire form of a transaction. Amounts travel as
// decimal strings so clients never touch float cents.
type transactionJSON struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Kind        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"createdAt"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Amount:      t.Amount.String(),
		Kind:        string(t.Kind),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.Format(dateLayout),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionsJSON(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type createTransactionRequest struct {
	Amount      string `json:"amount"`
	Kind        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Recurring   bool   `json:"recurring"`
}

type createTransactionResponse struct {
	Transaction transactionJSON `json:"transaction"`
	Recurring   *recurringJSON  `json:"recurring,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ListFilter{
		Kind:     core.Kind(q.Get("kind")),
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		respondError(w, r, fmt.Errorf("%w: unknown kind %q", errBadRequest, filter.Kind))
		return
	}

	transactions, err := s.transactions.List(r.Context(), owner(r), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionsJSON(transactions)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		respondError(w, r, fmt.Errorf("date %q: %w", req.Date, core.ErrInvalidDate))
		return
	}

	ownerID := owner(r)
	tx, def, err := s.transactions.Create(r.Context(), ownerID, services.CreateInput{
		Amount:      core.Money{Cents: cents},
		Kind:        core.ParseKind(req.Kind),
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
		Recurring:   req.Recurring,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateMetrics(ownerID)

	resp := createTransactionResponse{Transaction: toTransactionJSON(tx)}
	if def != nil {
		rj := toRecurringJSON(*def)
		resp.Recurring = &rj
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if err := s.transactions.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateMetrics(ownerID)
	respondJSON(w, http.StatusNoContent, nil)
}

type importTransactionsRequest struct {
	Transactions []importRowJSON `json:"transactions"`
}

type importRowJSON struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Kind        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	var req importTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	if len(req.Transactions) == 0 {
		respondError(w, r, fmt.Errorf("%w: no transactions provided", errBadRequest))
		return
	}

	rows := make([]services.ImportRow, 0, len(req.Transactions))
	for i, row := range req.Transactions {
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			respondError(w, r, fmt.Errorf("row %d: date %q: %w", i+1, row.Date, core.ErrInvalidDate))
			return
		}
		cents, err := core.ParseAmountToCents(row.Amount)
		if err != nil {
			respondError(w, r, fmt.Errorf("row %d: %w", i+1, err))
			return
		}
		var kind core.Kind
		if row.Kind != "" {
			kind = core.ParseKind(row.Kind)
		}
		rows = append(rows, services.ImportRow{
			Date:        date,
			Amount:      core.Money{Cents: cents},
			Kind:        kind,
			Category:    row.Category,
			Description: row.Description,
		})
	}

	ownerID := owner(r)
	count, err := s.transactions.Import(r.Context(), ownerID, rows)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateMetrics(ownerID)
	respondJSON(w, http.StatusCreated, map[string]int{"imported": count})
}
