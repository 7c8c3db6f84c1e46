package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	webhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of inbound webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	analysisCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_api_calls_total",
			Help: "Total number of outbound analysis API calls",
		},
		[]string{"endpoint", "status"},
	)

	analysisCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_api_duration_seconds",
			Help:    "Analysis API call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	batchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_tasks_total",
			Help: "Total number of executed bulk-ingest batch tasks",
		},
		[]string{"outcome"},
	)
)

// MetricsMiddleware collects Prometheus metrics for every HTTP request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		httpRequestsInFlight.Inc()

		// Route pattern, not the raw URL, to keep cardinality bounded.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordWebhookDelivery counts one inbound delivery.
// Outcomes: accepted, discarded, rejected, failed.
func RecordWebhookDelivery(outcome string) {
	webhookDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// RecordAnalysisCall counts one outbound analysis API call.
func RecordAnalysisCall(endpoint string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	analysisCallsTotal.WithLabelValues(endpoint, status).Inc()
	analysisCallDuration.Observe(duration.Seconds())
}

// RecordBatchTask counts one finished batch task.
func RecordBatchTask(success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	batchTasksTotal.WithLabelValues(outcome).Inc()
}
