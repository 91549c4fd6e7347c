// Package metrics provides Prometheus instrumentation for Harrier.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AssessmentsTotal counts completed assessments by outcome.
	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harrier",
			Name:      "fraud_assessments_total",
			Help:      "Total risk assessments by risk level, action, and signal count.",
		},
		[]string{"risk_level", "action", "signals"},
	)

	// AssessmentScore observes the distribution of final risk scores.
	AssessmentScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "harrier",
			Name:      "fraud_assessment_score",
			Help:      "Distribution of final risk scores.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// DetectorDuration observes per-detector latency in milliseconds.
	DetectorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "harrier",
			Name:      "fraud_detector_duration_ms",
			Help:      "Detector evaluation time in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 200, 500},
		},
		[]string{"detector"},
	)

	// DetectorFailures counts dropped detector evaluations by detector
	// and cause (error, timeout, panic).
	DetectorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harrier",
			Name:      "fraud_detector_failures_total",
			Help:      "Detector evaluations dropped from assessments, by cause.",
		},
		[]string{"detector", "cause"},
	)

	// SignalsTotal counts fired signals by rule.
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harrier",
			Name:      "fraud_signals_total",
			Help:      "Total fired fraud signals by rule.",
		},
		[]string{"rule"},
	)

	// BlocklistHits counts requests rejected by the blocklist gate.
	BlocklistHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harrier",
			Name:      "fraud_blocklist_hits_total",
			Help:      "Requests rejected by the blocklist, by key type.",
		},
		[]string{"kind"},
	)

	// FailSafeTotal counts assessments that fell back to the fail-safe
	// default.
	FailSafeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "harrier",
			Name:      "fraud_failsafe_total",
			Help:      "Assessments that returned the fail-safe default.",
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harrier",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status bucket.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "harrier",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		AssessmentsTotal,
		AssessmentScore,
		DetectorDuration,
		DetectorFailures,
		SignalsTotal,
		BlocklistHits,
		FailSafeTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// Handler returns the Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx,
// 5xx) to keep label cardinality flat.
func StatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
