package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keilmann/allowance-tracker-go/internal/infra/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_DebugEnablesDebugLevel(t *testing.T) {
	logger := observability.NewLogger("debug")
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
}

func TestNewLogger_DefaultSuppressesDebug(t *testing.T) {
	logger := observability.NewLogger("info")
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be disabled by default")
	}
}

func TestZapLoggerMiddleware_DemotesProbeEndpoints(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	h := observability.ZapLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if logs.Len() != 0 {
		t.Errorf("expected probe request below info level, got %d entries", logs.Len())
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/records/expenses/", nil))
	if logs.Len() != 1 {
		t.Fatalf("expected one entry for a real request, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("expected info level, got %s", entry.Level)
	}
}
