package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Upload requests by upload type and outcome",
		},
		[]string{"upload_type", "outcome"},
	)

	processRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "process_runs_total",
			Help: "External process invocations by script and outcome",
		},
		[]string{"script", "outcome"},
	)

	processDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "process_duration_seconds",
			Help:    "External process wall time in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"script"},
	)

	reportsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reports_created_total",
		Help: "Report records created",
	})

	associationsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "report_associations_skipped_total",
		Help: "Reports created without a processed image association",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)
)

// ObserveUpload counts an upload request outcome.
func ObserveUpload(uploadType, outcome string) {
	uploadsTotal.WithLabelValues(uploadType, outcome).Inc()
}

// ObserveProcessRun records one external process invocation.
func ObserveProcessRun(script, outcome string, seconds float64) {
	processRunsTotal.WithLabelValues(script, outcome).Inc()
	processDuration.WithLabelValues(script).Observe(seconds)
}

// IncReportsCreated increments the report counter.
func IncReportsCreated() {
	reportsCreatedTotal.Inc()
}

// IncAssociationSkipped increments the skipped association counter.
func IncAssociationSkipped() {
	associationsSkippedTotal.Inc()
}

// ObserveHTTP records a finished request. route should be the gin route pattern.
func ObserveHTTP(method, route, status string, seconds float64) {
	if route == "" {
		route = "unknown"
	}
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
