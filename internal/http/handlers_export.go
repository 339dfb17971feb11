package http

import (
	"fmt"
	"net/http"
	"time"

	"cashops/internal/core"
	applog "cashops/internal/log"
	"cashops/internal/report"
	"cashops/internal/services"
)

// handleImportPreview parses a CSV request body into rows the client can
// review before committing them through the import endpoint. The first bad
// row fails the whole preview.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	if owner(r) == "" {
		respondError(w, r, core.ErrUnauthorized)
		return
	}

	rows, err := report.ParseCSV(r.Body)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	out := make([]importRowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, importRowJSON{
			Date:        row.Date.Format(dateLayout),
			Amount:      row.Amount.String(),
			Kind:        string(row.Kind),
			Category:    row.Category,
			Description: row.Description,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"rows": out})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.transactions.List(r.Context(), owner(r), services.ListFilter{})
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := report.WriteCSV(w, transactions); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.transactions.List(r.Context(), owner(r), services.ListFilter{})
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	rep := report.BuildReport(transactions, time.Now())
	if err := report.RenderHTML(w, rep); err != nil {
		// Headers are already out; nothing useful left to send.
		applog.FromContext(r.Context()).Error("Failed to render report", applog.FieldError, err)
	}
}

// handleExportSheets pushes the owner's transactions to the configured
// Google spreadsheet. Without a configured exporter the endpoint reports 503
// and the rest of the API is unaffected.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.transactions.List(r.Context(), owner(r), services.ListFilter{})
	if err != nil {
		respondError(w, r, err)
		return
	}

	count, err := s.exporter.Export(r.Context(), transactions)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"exported": count})
}
