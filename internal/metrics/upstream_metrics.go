package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream request counter vectors
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddock",
		Name:      "upstream_requests_total",
		Help:      "Total number of results API requests by resource and status",
	}, []string{"resource", "status"})

	BatchPagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paddock",
		Name:      "batch_pages_total",
		Help:      "Pages fetched by the batch fetcher by resource and outcome",
	}, []string{"resource", "outcome"})
)

// Upstream histogram vectors
var (
	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "paddock",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of results API requests in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"resource"})
)

// Upstream gauges
var (
	BatchStaggerSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "paddock",
		Name:      "batch_stagger_seconds",
		Help:      "Current adaptive stagger between page requests in a window",
	})

	ResponseCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "paddock",
		Name:      "response_cache_hit_ratio",
		Help:      "Hit ratio of the in-process upstream response cache",
	})

	CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "paddock",
		Name:      "circuit_breaker_state",
		Help:      "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})
)

// RecordUpstreamRequest records one results API request.
func RecordUpstreamRequest(resource, status string, durationSeconds float64) {
	UpstreamRequestsTotal.WithLabelValues(resource, status).Inc()
	UpstreamRequestDuration.WithLabelValues(resource).Observe(durationSeconds)
}

// RecordBatchPages records pages fetched by one batch.
func RecordBatchPages(resource string, succeeded, failed int) {
	BatchPagesTotal.WithLabelValues(resource, "ok").Add(float64(succeeded))
	if failed > 0 {
		BatchPagesTotal.WithLabelValues(resource, "failed").Add(float64(failed))
	}
}

// UpdateBatchStagger updates the adaptive stagger gauge.
func UpdateBatchStagger(seconds float64) {
	BatchStaggerSeconds.Set(seconds)
}

// UpdateResponseCacheHitRatio updates the response cache hit ratio gauge.
func UpdateResponseCacheHitRatio(ratio float64) {
	ResponseCacheHitRatio.Set(ratio)
}

// UpdateCircuitBreakerState updates the breaker state gauge.
func UpdateCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}
