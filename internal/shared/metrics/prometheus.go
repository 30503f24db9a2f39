package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of authorization decisions by outcome",
		},
		[]string{"decision", "study"},
	)

	decisionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authorization_decision_failures_total",
			Help: "Total number of decision runs that fell back to manual review on error",
		},
	)

	llmCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Duration of completion calls to the language model",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
	)

	surveyTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_transitions_total",
			Help: "Total number of SMS survey state transitions",
		},
		[]string{"classification"},
	)

	surveysCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surveys_completed_total",
			Help: "Total number of SMS surveys completed",
		},
	)

	reviewActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_actions_total",
			Help: "Total number of physician review actions",
		},
		[]string{"action"},
	)

	patientsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patients_purged_total",
			Help: "Total number of patients removed by the retention job",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath caps path cardinality for metrics labels
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordDecision records a completed authorization decision
func RecordDecision(decision, study string) {
	decisionsTotal.WithLabelValues(decision, study).Inc()
}

// RecordDecisionFailure records a decision run that failed over to manual review
func RecordDecisionFailure() {
	decisionFailures.Inc()
}

// RecordLLMCall records the duration of a model completion call
func RecordLLMCall(duration time.Duration) {
	llmCallDuration.Observe(duration.Seconds())
}

// RecordSurveyTransition records an inbound survey message by classification
func RecordSurveyTransition(classification string) {
	surveyTransitions.WithLabelValues(classification).Inc()
}

// RecordSurveyCompleted records a survey reaching the completed state
func RecordSurveyCompleted() {
	surveysCompleted.Inc()
}

// RecordReviewAction records a physician review action (approve, hold, feedback)
func RecordReviewAction(action string) {
	reviewActions.WithLabelValues(action).Inc()
}

// RecordPatientsPurged records patients deleted by the retention job
func RecordPatientsPurged(count int) {
	patientsPurged.Add(float64(count))
}
