package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keilmann/allowance-tracker-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Records — /v1/records/{kind}
// ============================================================

func listRecordsHandler(stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/records/{kind}")
		defer span.End()

		kind := chi.URLParam(r, "kind")
		store, ok := stores.byKind(kind)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown record kind: "+kind)
			return
		}
		span.SetAttributes(attribute.String("record.kind", kind))

		records := store.List()

		// Optional period filter: ?period=monthly&anchor=2024-03-01
		if r.URL.Query().Get("period") != "" {
			sel, err := parsePeriodSelection(r)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			filtered := make([]domain.Record, 0, len(records))
			for _, rec := range records {
				if sel.Contains(rec.Date) {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"records": records,
			"total":   store.Total(),
		})
	}
}

func createRecordHandler(stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/records/{kind}")
		defer span.End()

		kind := chi.URLParam(r, "kind")
		store, ok := stores.byKind(kind)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown record kind: "+kind)
			return
		}
		span.SetAttributes(attribute.String("record.kind", kind))

		var req domain.Record
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := store.Add(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func updateRecordHandler(stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/records/{kind}/{recordId}")
		defer span.End()

		kind := chi.URLParam(r, "kind")
		store, ok := stores.byKind(kind)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown record kind: "+kind)
			return
		}

		var req domain.Record
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.ID = chi.URLParam(r, "recordId")
		span.SetAttributes(attribute.String("record.id", req.ID))

		if err := store.Update(ctx, req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rec, _ := store.Get(req.ID)
		writeJSON(w, http.StatusOK, rec)
	}
}

func deleteRecordHandler(stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/records/{kind}/{recordId}")
		defer span.End()

		kind := chi.URLParam(r, "kind")
		store, ok := stores.byKind(kind)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown record kind: "+kind)
			return
		}

		id := chi.URLParam(r, "recordId")
		span.SetAttributes(attribute.String("record.id", id))

		if err := store.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func withdrawHandler(stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/savings/withdraw")
		defer span.End()

		var req struct {
			Amount float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := stores.Savings.Withdraw(ctx, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"record":  rec,
			"balance": stores.Savings.Total(),
		})
	}
}
