package handler

import (
	"net/http"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Analytics — /v1/analytics
// ============================================================

// seriesHandler returns a gap-filled chart series for one record kind.
// ?mode=cumulative returns the running-sum variant used by savings charts;
// the default is per-day activity.
func seriesHandler(stores Stores, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/analytics/series")
		defer span.End()

		kind := r.URL.Query().Get("kind")
		if kind == "" {
			kind = "expenses"
		}
		store, ok := stores.byKind(kind)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown record kind: "+kind)
			return
		}
		span.SetAttributes(attribute.String("record.kind", kind))

		sel, err := parsePeriodSelection(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		records := filterBySelection(store.List(), sel)
		start, end := sel.ChartRange()

		var series []domain.SeriesPoint
		if r.URL.Query().Get("mode") == "cumulative" {
			series = service.FillCumulativeGaps(service.CumulativeSeries(records), start, end)
		} else {
			series = service.FillPointGaps(service.PointInTimeSeries(records), start, end)
		}

		writeJSON(w, http.StatusOK, map[string]any{"series": series})
	}
}

func breakdownHandler(stores Stores, cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/analytics/breakdown")
		defer span.End()

		kind := r.URL.Query().Get("kind")
		if kind == "" {
			kind = "expenses"
		}
		store, ok := stores.byKind(kind)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown record kind: "+kind)
			return
		}
		span.SetAttributes(attribute.String("record.kind", kind))

		sel, err := parsePeriodSelection(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		records := filterBySelection(store.List(), sel)
		slices := service.CategoryBreakdown(records, cats.NamesByID())

		writeJSON(w, http.StatusOK, map[string]any{"breakdown": slices})
	}
}

func filterBySelection(records []domain.Record, sel domain.PeriodSelection) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if sel.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}
