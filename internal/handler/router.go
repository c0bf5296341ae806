package handler

import (
	"net/http"

	"github.com/keilmann/allowance-tracker-go/internal/infra/observability"
	"github.com/keilmann/allowance-tracker-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Stores bundles the per-kind record stores the router serves. Each kind is
// an independent optimistic store over the same remote ledger.
type Stores struct {
	Expenses *service.RecordStore
	Savings  *service.RecordStore
	Chores   *service.RecordStore
}

func (s Stores) byKind(kind string) (*service.RecordStore, bool) {
	switch kind {
	case "expenses":
		return s.Expenses, true
	case "savings":
		return s.Savings, true
	case "chores":
		return s.Chores, true
	}
	return nil, false
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(stores Stores, cats *service.CategoryStore, budgets *service.BudgetService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(MetricsMiddleware(metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Authentication. Public except logout.
		r.Route("/auth", func(r chi.Router) {
			if authSvc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "auth is not configured")
				}))
				return
			}
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))
			r.Post("/logout", authLogoutHandler(authSvc, logger))
		})

		r.Group(func(r chi.Router) {
			if authSvc != nil {
				r.Use(JWTAuthMiddleware(authSvc, logger))
			}

			// Records, one collection per kind.
			r.Route("/records/{kind}", func(r chi.Router) {
				r.Get("/", listRecordsHandler(stores, logger))
				r.Post("/", createRecordHandler(stores, logger))
				r.Put("/{recordId}", updateRecordHandler(stores, logger))
				r.Delete("/{recordId}", deleteRecordHandler(stores, logger))
			})
			r.Post("/savings/withdraw", withdrawHandler(stores, logger))

			// Categories.
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", listCategoriesHandler(cats, logger))
				r.Get("/tree", categoryTreeHandler(cats, logger))
				r.Post("/", createCategoryHandler(cats, logger))
				r.Put("/{categoryId}", updateCategoryHandler(cats, logger))
				r.Post("/{categoryId}/reparent", reparentCategoryHandler(cats, logger))
				r.Post("/reorder", reorderCategoriesHandler(cats, logger))
				r.Delete("/{categoryId}", deleteCategoryHandler(cats, logger))
			})

			// Budgets.
			r.Route("/budgets", func(r chi.Router) {
				r.Get("/", listBudgetsHandler(budgets, logger))
				r.Post("/", createBudgetHandler(budgets, logger))
				r.Put("/{budgetId}", updateBudgetHandler(budgets, logger))
				r.Delete("/{budgetId}", deleteBudgetHandler(budgets, logger))
				r.Post("/validate", validateBudgetHandler(budgets, logger))
				r.Get("/stats", budgetStatsHandler(budgets, stores, logger))
			})

			// Analytics.
			r.Route("/analytics", func(r chi.Router) {
				r.Get("/series", seriesHandler(stores, logger))
				r.Get("/breakdown", breakdownHandler(stores, cats, logger))
			})

			// Sync metrics snapshot.
			r.Get("/metrics/sync", syncMetricsHandler(metrics))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func syncMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSyncSnapshot())
	}
}
