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
// Categories — /v1/categories
// ============================================================

func listCategoriesHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		writeJSON(w, http.StatusOK, map[string]any{"categories": cats.List()})
	}
}

func categoryTreeHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/categories/tree")
		defer span.End()

		writeJSON(w, http.StatusOK, map[string]any{"tree": cats.Tree()})
	}
}

func createCategoryHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categories")
		defer span.End()

		var req struct {
			Name     string `json:"name"`
			ParentID string `json:"parent_id"`
			Color    string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cat, err := cats.Create(ctx, req.Name, req.ParentID, req.Color)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, cat)
	}
}

// updateCategoryHandler covers rename and recolor. Fields left out of the
// body are left alone.
func updateCategoryHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PUT /v1/categories/{categoryId}")
		defer span.End()

		id := chi.URLParam(r, "categoryId")
		span.SetAttributes(attribute.String("category.id", id))

		var req struct {
			Name  *string `json:"name"`
			Color *string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Name != nil {
			if err := cats.Rename(id, *req.Name); err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}
		if req.Color != nil {
			if err := cats.Recolor(id, *req.Color); err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}

		cat, ok := cats.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "category not found: "+id)
			return
		}
		writeJSON(w, http.StatusOK, cat)
	}
}

func reparentCategoryHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/categories/{categoryId}/reparent")
		defer span.End()

		id := chi.URLParam(r, "categoryId")
		span.SetAttributes(attribute.String("category.id", id))

		var req struct {
			ParentID string `json:"parent_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := cats.Reparent(id, req.ParentID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		cat, _ := cats.Get(id)
		writeJSON(w, http.StatusOK, cat)
	}
}

// reorderCategoriesHandler is the thin adapter over the pure move reducer:
// it reads the current display order, applies the move, and persists the
// resulting order.
func reorderCategoriesHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/categories/reorder")
		defer span.End()

		var ev domain.MoveEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		current := cats.List()
		order := make([]string, 0, len(current))
		for _, c := range current {
			order = append(order, c.ID)
		}

		cats.Reorder(domain.ApplyMove(order, ev))
		writeJSON(w, http.StatusOK, map[string]any{"categories": cats.List()})
	}
}

func deleteCategoryHandler(cats *service.CategoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/categories/{categoryId}")
		defer span.End()

		id := chi.URLParam(r, "categoryId")
		span.SetAttributes(attribute.String("category.id", id))

		if err := cats.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
