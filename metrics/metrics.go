// Package metrics provides Prometheus collectors for the HTTP surface and the
// dictation pipeline:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight
//   - dictation_analyses_total by outcome, dictation_stale_results_total
//   - extraction_request_duration_seconds by result
//   - capture_events_total by kind, workspaces_active
//
// All collectors are registered with the default registry at init.
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
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
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
			Help: "Number of per-client rate limiter buckets currently tracked",
		},
	)

	DictationAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dictation_analyses_total",
			Help: "Transcript analyses by outcome (applied, failed, discarded, refused)",
		},
		[]string{"outcome"},
	)

	DictationStaleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dictation_stale_results_total",
			Help: "Extraction results dropped because the session generation moved on",
		},
	)

	ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_request_duration_seconds",
			Help:    "Latency of calls to the extraction service",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"result"},
	)

	CaptureEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_events_total",
			Help: "Speech capture events by kind (final, interim, dropped)",
		},
		[]string{"kind"},
	)

	WorkspacesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspaces_active",
			Help: "Workspaces currently held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DictationAnalyses)
	prometheus.MustRegister(DictationStaleResults)
	prometheus.MustRegister(ExtractionDuration)
	prometheus.MustRegister(CaptureEvents)
	prometheus.MustRegister(WorkspacesActive)
}
