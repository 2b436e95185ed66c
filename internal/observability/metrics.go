package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	pendingRequests  prometheus.Gauge
	inFlightRequests prometheus.Gauge
	submissionsTotal *prometheus.CounterVec
	cancelsTotal     *prometheus.CounterVec
	supersededTotal  prometheus.Counter
	completionsTotal *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec
	queueWait        prometheus.Histogram

	httpRequestsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			pendingRequests: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "requestqueue_pending",
					Help: "Requests waiting for a concurrency slot.",
				},
			),
			inFlightRequests: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "requestqueue_in_flight",
					Help: "Requests currently executing against the runtime.",
				},
			),
			submissionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "requestqueue_submissions_total",
					Help: "Total submissions by outcome (admitted, coalesced, rejected).",
				},
				[]string{"outcome"},
			),
			cancelsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "requestqueue_cancellations_total",
					Help: "Total cancellations by scope (waiter, entry).",
				},
				[]string{"scope"},
			),
			supersededTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "requestqueue_superseded_total",
					Help: "Total pending requests dropped by supersede.",
				},
			),
			completionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "requestqueue_completions_total",
					Help: "Total executed requests by method and status.",
				},
				[]string{"method", "status"},
			),
			callDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "requestqueue_call_duration_seconds",
					Help:    "Transport call duration in seconds by method.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method"},
			),
			queueWait: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "requestqueue_wait_seconds",
					Help:    "Time between admission and start of execution.",
					Buckets: prometheus.DefBuckets,
				},
			),
			httpRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "runtime_http_requests_total",
					Help: "Total HTTP requests to the runtime by status code class.",
				},
				[]string{"code"},
			),
		}

		prometheus.MustRegister(
			m.pendingRequests,
			m.inFlightRequests,
			m.submissionsTotal,
			m.cancelsTotal,
			m.supersededTotal,
			m.completionsTotal,
			m.callDuration,
			m.queueWait,
			m.httpRequestsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetQueueDepth(pending, inFlight int) {
	m := getMetrics()
	m.pendingRequests.Set(float64(pending))
	m.inFlightRequests.Set(float64(inFlight))
}

func RecordSubmission(outcome string) {
	m := getMetrics()
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func RecordCancellation(scope string) {
	m := getMetrics()
	m.cancelsTotal.WithLabelValues(scope).Inc()
}

func RecordSuperseded(count int) {
	m := getMetrics()
	m.supersededTotal.Add(float64(count))
}

func RecordQueueWait(wait time.Duration) {
	m := getMetrics()
	m.queueWait.Observe(wait.Seconds())
}

func RecordCompletion(method, status string, duration time.Duration) {
	m := getMetrics()
	m.completionsTotal.WithLabelValues(method, status).Inc()
	m.callDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHTTPStatus counts a runtime response by class ("2xx", "4xx", ...).
// A zero status counts as "error" (no response received).
func RecordHTTPStatus(statusCode int) {
	m := getMetrics()
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode/100) + "xx"
	}
	m.httpRequestsTotal.WithLabelValues(code).Inc()
}
