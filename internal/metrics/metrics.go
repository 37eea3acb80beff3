// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_analyses_total",
		Help: "Total number of document analyses by risk level",
	}, []string{"risk_level"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harrier_analysis_duration_seconds",
		Help:    "Time to analyze one document",
		Buckets: prometheus.DefBuckets,
	})

	detectorDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_detector_degraded_total",
		Help: "Total number of detector invocations that reported degraded",
	}, []string{"detector"})

	qaQuestionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_qa_question_failures_total",
		Help: "Total number of QA questions that failed",
	}, []string{"category"})

	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_extractions_total",
		Help: "Total number of text extractions by quality level",
	}, []string{"quality_level"})

	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "harrier_inference_breaker_state",
		Help: "Current state of inference circuit breakers (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_inference_breaker_state_changes_total",
		Help: "Total number of inference circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harrier_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harrier_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordHTTPRequest counts a served request. route is the router
// pattern, not the raw path, to bound label cardinality.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "not_found"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordAnalysis counts a completed analysis.
func RecordAnalysis(riskLevel string, seconds float64) {
	analysesTotal.WithLabelValues(riskLevel).Inc()
	analysisDuration.Observe(seconds)
}

// RecordDegraded counts a degraded detector.
func RecordDegraded(detector string) {
	detectorDegradedTotal.WithLabelValues(detector).Inc()
}

// RecordQAFailure counts a failed QA question.
func RecordQAFailure(category string) {
	qaQuestionFailuresTotal.WithLabelValues(category).Inc()
}

// RecordExtraction counts an extraction by quality level.
func RecordExtraction(qualityLevel string) {
	extractionsTotal.WithLabelValues(qualityLevel).Inc()
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

// RecordBreakerState sets the current state of a breaker.
func RecordBreakerState(name string, state gobreaker.State) {
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(state))
}

// RecordBreakerStateChange counts a breaker transition and updates its state.
func RecordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	RecordBreakerState(name, to)
}
