package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	transitionsTotal      *prometheus.CounterVec
	transitionRejections  *prometheus.CounterVec
	gradingDuration       *prometheus.HistogramVec
	gradingFailures       *prometheus.CounterVec
	feedbackNonConforming prometheus.Counter
	taskCacheRequests     *prometheus.CounterVec
	streamClientsActive   prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fumi",
			Name:      "api_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fumi",
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fumi",
			Subsystem: "submission",
			Name:      "transitions_total",
			Help:      "Committed submission status transitions.",
		}, []string{"from", "to"})

		transitionRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fumi",
			Subsystem: "submission",
			Name:      "rejections_total",
			Help:      "Submission operations rejected by validation or state rules.",
		}, []string{"operation", "kind"})

		gradingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fumi",
			Subsystem: "grading",
			Name:      "duration_seconds",
			Help:      "Duration of AI grading requests.",
		}, []string{"grader"})

		gradingFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fumi",
			Subsystem: "grading",
			Name:      "failures_total",
			Help:      "Number of AI grading failures.",
		}, []string{"grader"})

		feedbackNonConforming = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fumi",
			Subsystem: "grading",
			Name:      "feedback_nonconforming_total",
			Help:      "AI feedback payloads that did not match the feedback schema.",
		})

		taskCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fumi",
			Subsystem: "tasks",
			Name:      "cache_requests_total",
			Help:      "Teacher task list cache lookups by result.",
		}, []string{"result"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fumi",
			Subsystem: "stream",
			Name:      "clients_active",
			Help:      "Open submission status streams.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			transitionsTotal,
			transitionRejections,
			gradingDuration,
			gradingFailures,
			feedbackNonConforming,
			taskCacheRequests,
			streamClientsActive,
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

// SubmissionTransitions counts committed status changes.
func SubmissionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// SubmissionRejections counts rejected submission operations.
func SubmissionRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionRejections
}

// GradingDuration exposes the grading latency histogram.
func GradingDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingDuration
}

// GradingFailures counts failed grading attempts.
func GradingFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingFailures
}

// FeedbackNonConforming counts AI payloads that fail schema validation.
func FeedbackNonConforming() prometheus.Counter {
	RegisterMetrics()
	return feedbackNonConforming
}

// TaskCacheRequests counts task list cache hits and misses.
func TaskCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return taskCacheRequests
}

// StreamClientsActive tracks open websocket status streams.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
