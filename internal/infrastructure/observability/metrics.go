// Package observability provides Prometheus metrics, the HTTP metrics
// middleware and OpenTelemetry tracing setup.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ActionsTotal counts engine Execute calls by action and result class.
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viaticos_workflow_actions_total",
			Help: "Workflow actions by result class",
		},
		[]string{"action", "class"},
	)

	// ActionDuration records Execute latency in seconds.
	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viaticos_workflow_action_duration_seconds",
			Help:    "Workflow action duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// TransitionsTotal counts committed stage changes.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viaticos_workflow_transitions_total",
			Help: "Committed stage transitions",
		},
		[]string{"from", "to"},
	)

	// HTTPRequestsTotal counts API requests by method, route and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viaticos_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration records API request duration in seconds.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viaticos_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		ActionsTotal,
		ActionDuration,
		TransitionsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// WorkflowMetrics implements workflow.Metrics over the package collectors
type WorkflowMetrics struct{}

// NewWorkflowMetrics returns the Prometheus-backed engine metrics
func NewWorkflowMetrics() *WorkflowMetrics {
	return &WorkflowMetrics{}
}

// ObserveAction records one Execute call
func (WorkflowMetrics) ObserveAction(action, class string, elapsed time.Duration) {
	ActionsTotal.WithLabelValues(action, class).Inc()
	ActionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveTransition records a committed stage change
func (WorkflowMetrics) ObserveTransition(from, to string) {
	TransitionsTotal.WithLabelValues(from, to).Inc()
}

// GinMiddleware records request count and latency per matched route
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status()/100) + "xx"

		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
