package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/config"
	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/handler"
	"github.com/keilmann/allowance-tracker-go/internal/infra/cache"
	"github.com/keilmann/allowance-tracker-go/internal/infra/client"
	"github.com/keilmann/allowance-tracker-go/internal/infra/observability"
	"github.com/keilmann/allowance-tracker-go/internal/infra/resilience"
	"github.com/keilmann/allowance-tracker-go/internal/infra/sqlite"
	"github.com/keilmann/allowance-tracker-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ledger_api_url", cfg.LedgerAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("budget_db_path", cfg.BudgetDBPath),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "allowance-tracker")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("remote-ledger")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Remote ledger client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	ledger := client.NewLedgerClient(httpClient, cfg.LedgerAPIURL, cfg.LedgerAPIKey, cb, bulkhead, resilienceCfg, logger)

	// --- Stores ---
	cats := service.NewCategoryStore(ledger, logger)
	expenses := service.NewRecordStore(domain.KindExpense, ledger, metrics, logger)
	savings := service.NewRecordStore(domain.KindSaving, ledger, metrics, logger)
	chores := service.NewRecordStore(domain.KindChore, ledger, metrics, logger)

	hydrateCtx, cancelHydrate := context.WithTimeout(context.Background(), cfg.HTTPTimeout*3)
	if err := service.HydrateAll(hydrateCtx, cats, expenses, savings, chores); err != nil {
		// The tracker still serves with empty state; mutations will surface
		// remote errors to the client.
		logger.Warn("initial hydration failed", zap.Error(err))
	}
	cancelHydrate()

	// --- Budgets (local sqlite) ---
	budgetRepo, err := sqlite.OpenBudgetRepo(cfg.BudgetDBPath, logger)
	if err != nil {
		logger.Fatal("failed to open budget database", zap.Error(err))
	}
	defer budgetRepo.Close()

	budgets := service.NewBudgetService(budgetRepo, logger)
	if err := budgets.Load(context.Background()); err != nil {
		logger.Fatal("failed to load budgets", zap.Error(err))
	}

	// --- Auth ---
	var authSvc *service.AuthService
	if cfg.JWTSecret != "" && cfg.HouseholdPassHash != "" {
		sessions := cache.New[string](cfg.SessionTTL).WithMetrics(
			func() { metrics.IncrCacheHit("sessions") },
			func() { metrics.IncrCacheMiss("sessions") },
		)
		authSvc = service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.HouseholdUser, cfg.HouseholdPassHash, sessions, logger)
		logger.Info("auth service enabled", zap.String("user", cfg.HouseholdUser))
	} else {
		logger.Warn("auth service: credentials not configured, API is unauthenticated")
	}

	// --- Router ---
	stores := handler.Stores{Expenses: expenses, Savings: savings, Chores: chores}
	router := handler.NewRouter(stores, cats, budgets, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
