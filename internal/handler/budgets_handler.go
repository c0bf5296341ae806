package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Budgets — /v1/budgets
// ============================================================

func listBudgetsHandler(budgets *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		writeJSON(w, http.StatusOK, map[string]any{"budgets": budgets.List()})
	}
}

func createBudgetHandler(budgets *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets")
		defer span.End()

		var req domain.Budget
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		b, err := budgets.Create(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

func updateBudgetHandler(budgets *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budgets/{budgetId}")
		defer span.End()

		var req domain.Budget
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.ID = chi.URLParam(r, "budgetId")
		span.SetAttributes(attribute.String("budget.id", req.ID))

		if err := budgets.Update(ctx, req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

func deleteBudgetHandler(budgets *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budgets/{budgetId}")
		defer span.End()

		id := chi.URLParam(r, "budgetId")
		span.SetAttributes(attribute.String("budget.id", id))

		if err := budgets.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// validateBudgetHandler runs the advisory overlap check without storing
// anything. A conflict is reported in the body, not as an HTTP error, so
// clients can warn and still proceed.
func validateBudgetHandler(budgets *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/budgets/validate")
		defer span.End()

		var req domain.Budget
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := budgets.CheckOverlap(req); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "warning": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	}
}

func budgetStatsHandler(budgets *service.BudgetService, stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/budgets/stats")
		defer span.End()

		sel, err := parsePeriodSelection(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("period", string(sel.Period)))

		// Budgets plan expense spending only.
		writeJSON(w, http.StatusOK, budgets.Stats(sel, stores.Expenses.List()))
	}
}
