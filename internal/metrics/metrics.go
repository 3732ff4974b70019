// Package metrics provides the centralized Prometheus metrics registry for paddock.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SyncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddock",
		Name:      "sync_runs_total",
		Help:      "Total number of sync runs by entity kind and outcome",
	}, []string{"entity_kind", "outcome"})
	RoundsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddock",
		Name:      "rounds_written_total",
		Help:      "Total number of round records upserted",
	}, []string{"entity_kind"})
	StoreOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddock",
		Name:      "store_operations_total",
		Help:      "Total number of cache store operations by backend, operation and outcome",
	}, []string{"backend", "operation", "outcome"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "paddock",
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of upstream circuit breaker trips",
	})
)

// Gauge metrics
var (
	SyncCursorRound = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "paddock",
		Name:      "sync_cursor_round",
		Help:      "Last synchronized round per season and entity",
	}, []string{"season", "entity"})
	TrackedEntities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "paddock",
		Name:      "tracked_entities",
		Help:      "Number of entities re-synced on schedule",
	})
)

// Histogram metrics
var (
	SyncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "paddock",
		Name:      "sync_duration_seconds",
		Help:      "Duration of sync runs in seconds",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"entity_kind"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register sync metrics
		registry.MustRegister(SyncRunsTotal)
		registry.MustRegister(RoundsWrittenTotal)
		registry.MustRegister(StoreOperationsTotal)
		registry.MustRegister(SyncCursorRound)
		registry.MustRegister(TrackedEntities)
		registry.MustRegister(SyncDuration)
		registry.MustRegister(CircuitBreakerTripsTotal)

		// Register upstream metrics
		registry.MustRegister(UpstreamRequestsTotal)
		registry.MustRegister(UpstreamRequestDuration)
		registry.MustRegister(BatchPagesTotal)
		registry.MustRegister(BatchStaggerSeconds)
		registry.MustRegister(ResponseCacheHitRatio)
		registry.MustRegister(CircuitBreakerState)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSyncRun records a completed sync run.
func RecordSyncRun(entityKind, outcome string, durationSeconds float64) {
	SyncRunsTotal.WithLabelValues(entityKind, outcome).Inc()
	SyncDuration.WithLabelValues(entityKind).Observe(durationSeconds)
}

// RecordRoundWritten records one upserted round record.
func RecordRoundWritten(entityKind string) {
	RoundsWrittenTotal.WithLabelValues(entityKind).Inc()
}

// RecordStoreOperation records a cache store call.
func RecordStoreOperation(backend, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreOperationsTotal.WithLabelValues(backend, operation, outcome).Inc()
}

// UpdateSyncCursor updates the cursor gauge for a season/entity.
func UpdateSyncCursor(season, entity string, round int) {
	SyncCursorRound.WithLabelValues(season, entity).Set(float64(round))
}

// UpdateTrackedEntities updates the tracked entities gauge.
func UpdateTrackedEntities(count int) {
	TrackedEntities.Set(float64(count))
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}
