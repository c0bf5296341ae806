package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/infra/client"
	"github.com/keilmann/allowance-tracker-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, url string, maxRetries int) *client.LedgerClient {
	t.Helper()
	cfg := resilience.Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 1,
	}
	cb := resilience.NewCircuitBreaker("test-ledger")
	return client.NewLedgerClient(&http.Client{Timeout: time.Second}, url, "", cb, resilience.NewBulkhead(1), cfg, zap.NewNop())
}

func TestDeleteTransaction_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	err := c.DeleteTransaction(context.Background(), domain.KindExpense, "tx-gone")

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected a single request for a missing record, got %d", got)
	}
}

func TestListTransactions_OpenBreakerMapsToCircuitOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	// The breaker trips at a 60% failure ratio over at least 5 requests.
	for i := 0; i < 5; i++ {
		if _, err := c.ListTransactions(context.Background(), domain.KindExpense); err == nil {
			t.Fatal("expected error from failing ledger")
		}
	}

	_, err := c.ListTransactions(context.Background(), domain.KindExpense)
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected circuit-open error once the breaker trips, got %v", err)
	}
}
