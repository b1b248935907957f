// Package metrics provides Prometheus metrics for the HTTP server and the matching pipeline.
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Pipeline metrics:
//   - match_results_total: Counter with tier and confidence labels
//   - match_run_duration_seconds: Histogram of whole-run latency
//   - match_discrepancies_total: Counter of consistency check failures
//   - catalog_records: Gauge with the size of the loaded catalog
//
// All metrics are registered with the Prometheus default registry during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	MatchResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_results_total",
			Help: "Source records matched, by tier and confidence",
		},
		[]string{"tier", "confidence"},
	)

	MatchRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_run_duration_seconds",
			Help:    "Matching run latency",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	MatchDiscrepanciesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "match_discrepancies_total",
			Help: "Generic count and itemized list disagreements found by the consistency check",
		},
	)

	CatalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_records",
			Help: "Records in the currently loaded reference catalog",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(MatchResultsTotal)
	prometheus.MustRegister(MatchRunDuration)
	prometheus.MustRegister(MatchDiscrepanciesTotal)
	prometheus.MustRegister(CatalogRecords)
}
