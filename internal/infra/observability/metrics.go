package observability

import (
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	remoteErrors    *prometheus.CounterVec
	mutationsTotal  *prometheus.CounterVec
	rollbacksTotal  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		remoteErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_remote_errors_total",
				Help: "Total errors from the remote ledger.",
			},
			[]string{"operation"},
		),
		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_mutations_total",
				Help: "Total record mutations by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		rollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_optimistic_rollbacks_total",
				Help: "Total optimistic mutations rolled back after a remote failure.",
			},
			[]string{"kind", "operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRemoteError increments the remote ledger error counter.
func (m *Metrics) IncrRemoteError(operation string) {
	m.remoteErrors.WithLabelValues(operation).Inc()
}

// IncrMutation increments the mutation counter for a record kind.
func (m *Metrics) IncrMutation(kind domain.RecordKind, outcome string) {
	m.mutationsTotal.WithLabelValues(string(kind), outcome).Inc()
}

// IncrRollback increments the rollback counter for a record kind.
func (m *Metrics) IncrRollback(kind domain.RecordKind, operation string) {
	m.rollbacksTotal.WithLabelValues(string(kind), operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// SyncSnapshot is a point-in-time view of mutation/rollback counters,
// served by GET /v1/metrics/sync.
type SyncSnapshot struct {
	Confirmed    int64   `json:"confirmed"`
	Failed       int64   `json:"failed"`
	Rollbacks    int64   `json:"rollbacks"`
	RemoteErrors int64   `json:"remote_errors"`
	FailureRate  float64 `json:"failure_rate"`
}

// GetSyncSnapshot gathers cumulative counter values across record kinds.
func (m *Metrics) GetSyncSnapshot() *SyncSnapshot {
	kinds := []domain.RecordKind{domain.KindExpense, domain.KindSaving, domain.KindChore}
	ops := []string{"add", "update", "delete", "withdraw"}

	var confirmed, failed, rollbacks float64
	for _, k := range kinds {
		confirmed += getCounterValue(m.mutationsTotal, string(k), "confirmed")
		failed += getCounterValue(m.mutationsTotal, string(k), "failed")
		for _, op := range ops {
			rollbacks += getCounterValue(m.rollbacksTotal, string(k), op)
		}
	}

	var remoteErrs float64
	for _, op := range []string{"transactions.list", "transactions.create", "transactions.update", "transactions.delete", "categories.list", "categories.create", "categories.delete"} {
		remoteErrs += getCounterValue(m.remoteErrors, op)
	}

	failureRate := float64(0)
	if confirmed+failed > 0 {
		failureRate = failed / (confirmed + failed)
	}

	return &SyncSnapshot{
		Confirmed:    int64(confirmed),
		Failed:       int64(failed),
		Rollbacks:    int64(rollbacks),
		RemoteErrors: int64(remoteErrs),
		FailureRate:  failureRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for
// the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
