package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Database metrics
	DatabaseQueryDuration   *prometheus.HistogramVec
	DatabaseQueriesTotal    *prometheus.CounterVec
	DatabaseConnectionsOpen *prometheus.GaugeVec

	// Redis metrics
	RedisOperationDuration *prometheus.HistogramVec
	RedisOperationsTotal   *prometheus.CounterVec

	// Vote ledger metrics
	VoteOperationsTotal    *prometheus.CounterVec
	VoteOperationDuration  *prometheus.HistogramVec
	VoteCompensationsTotal *prometheus.CounterVec
	VoteReconcileTotal     *prometheus.CounterVec

	// Deletion workflow metrics
	TeardownStepsTotal *prometheus.CounterVec

	// Upload metrics
	UploadsTotal *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method", "path"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of requests rejected by the rate limiter",
				},
				[]string{"endpoint", "method"},
			),

			DatabaseQueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"query_type", "table"},
			),
			DatabaseQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_queries_total",
					Help: "Total number of database queries",
				},
				[]string{"query_type", "table", "status"},
			),
			DatabaseConnectionsOpen: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "database_connections_open",
					Help: "Number of open database connections",
				},
				[]string{"database"},
			),

			RedisOperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "redis_operation_duration_seconds",
					Help:    "Redis operation latency in seconds",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
				},
				[]string{"operation"},
			),
			RedisOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "redis_operations_total",
					Help: "Total number of Redis operations",
				},
				[]string{"operation", "status"},
			),

			VoteOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vote_operations_total",
					Help: "Vote operations by entity kind, choice and outcome",
				},
				[]string{"kind", "choice", "outcome"},
			),
			VoteOperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "vote_operation_duration_seconds",
					Help:    "End to end latency of vote operations",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"kind", "choice"},
			),
			VoteCompensationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vote_compensations_total",
					Help: "Set mutations undone after a failed counter update",
				},
				[]string{"kind", "status"},
			),
			VoteReconcileTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "vote_reconcile_total",
					Help: "Counter reconciliations, labelled by whether drift was found",
				},
				[]string{"kind", "drift"},
			),

			TeardownStepsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "teardown_steps_total",
					Help: "Entity deletion workflow steps by outcome",
				},
				[]string{"kind", "step", "status"},
			),

			UploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "uploads_total",
					Help: "Image uploads by target and outcome",
				},
				[]string{"target", "status"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
