package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parsePeriodSelection reads ?period= and ?anchor= into a selection.
// The anchor accepts RFC3339 or a plain date; it defaults to now so the
// common case (current month/year) needs no parameter.
func parsePeriodSelection(r *http.Request) (domain.PeriodSelection, error) {
	sel := domain.PeriodSelection{
		Period: domain.PeriodAll,
		Anchor: time.Now(),
	}

	if v := r.URL.Query().Get("period"); v != "" {
		sel.Period = domain.Period(v)
		if !sel.Period.Valid() {
			return sel, &domain.ErrValidation{Field: "period", Message: "must be one of all, monthly, yearly"}
		}
	}
	if v := r.URL.Query().Get("anchor"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			t, err = time.Parse("2006-01-02", v)
		}
		if err != nil {
			return sel, &domain.ErrValidation{Field: "anchor", Message: "must be RFC3339 or YYYY-MM-DD"}
		}
		sel.Anchor = t
	}
	return sel, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var invalidRef *domain.ErrInvalidReference
	var invalidAmount *domain.ErrInvalidAmount
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var remote *domain.ErrRemote
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidRef):
		logger.Debug("invalid reference", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidAmount):
		logger.Warn("invalid amount",
			zap.Float64("amount", invalidAmount.Amount),
			zap.Float64("available", invalidAmount.Available),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &remote):
		logger.Error("remote ledger error", zap.Int("status", remote.Status), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
