// Package telemetry defines the Prometheus metrics for the crawl and query
// paths. Metrics register on the default registry and are served by the API
// server's /metrics endpoint.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexcrawler_fetches_total",
			Help: "Total source fetches, labeled by family and outcome.",
		},
		[]string{"family", "outcome"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexcrawler_fetch_bytes_total",
			Help: "Total bytes fetched from remote sources, labeled by family.",
		},
		[]string{"family"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexcrawler_fetch_duration_seconds",
			Help:    "Histogram of source fetch latencies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"family"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexcrawler_rate_limit_delay_seconds",
			Help:    "Histogram of politeness-delay wait durations per host.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"host"},
	)

	itemsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexcrawler_items_upserted_total",
			Help: "Documents upserted into the store, labeled by family.",
		},
		[]string{"family"},
	)

	itemsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexcrawler_items_failed_total",
			Help: "Per-item failures, labeled by family and pipeline stage.",
		},
		[]string{"family", "stage"},
	)

	searchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexcrawler_searches_total",
			Help: "Total full-text searches served.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexcrawler_http_requests_total",
			Help: "Total API requests, labeled by method and status code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexcrawler_http_request_duration_seconds",
			Help:    "Histogram of API request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)
)

// ObserveFetch records one completed fetch attempt.
func ObserveFetch(family, outcome string, bytes int, d time.Duration) {
	fetchesTotal.WithLabelValues(family, outcome).Inc()
	if bytes > 0 {
		fetchBytesTotal.WithLabelValues(family).Add(float64(bytes))
	}
	fetchDurationSeconds.WithLabelValues(family).Observe(d.Seconds())
}

// ObserveRateLimitDelay records time spent waiting on the per-host limiter.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// IncUpserted records a successful document upsert.
func IncUpserted(family string) {
	itemsUpsertedTotal.WithLabelValues(family).Inc()
}

// IncItemFailed records a per-item failure at the named pipeline stage.
func IncItemFailed(family, stage string) {
	itemsFailedTotal.WithLabelValues(family, stage).Inc()
}

// IncSearch records one search query.
func IncSearch() {
	searchesTotal.Inc()
}

// ObserveHTTPRequest records one served API request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
