package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cashops/internal/core"
	applog "cashops/internal/log"
	"cashops/internal/report/sheets"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

// respondError maps domain errors onto the API's status taxonomy: missing
// owner 401, malformed input 400, valid-but-unacceptable values 422, unknown
// records 404, unsupported guest operations 422, unconfigured export 503,
// anything else 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, core.ErrGuestRecurringUnsupported):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDay):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, core.ErrInvalidDate):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, sheets.ErrNotConfigured):
		status = http.StatusServiceUnavailable
		message = err.Error()
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		// Method and path are already attached by the request middleware.
		applog.FromContext(r.Context()).Error("Request failed", applog.FieldError, err)
	}
	respondJSON(w, status, errorResponse{Error: message})
}
