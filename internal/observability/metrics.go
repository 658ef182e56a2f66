package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	attemptTransitionsTotal *prometheus.CounterVec
	manualGradesTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for API and
// attempt lifecycle observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		attemptTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attempt_transitions_total",
			Help: "Attempt lifecycle transitions by kind.",
		}, []string{"transition"})

		manualGradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manual_grades_total",
			Help: "Manual grading decisions by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			attemptTransitionsTotal,
			manualGradesTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AttemptTransitions exposes the attempt lifecycle counter. Labels: started,
// submitted, graded, expired.
func AttemptTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptTransitionsTotal
}

// ManualGrades exposes the manual grading decisions counter.
func ManualGrades() *prometheus.CounterVec {
	RegisterMetrics()
	return manualGradesTotal
}
