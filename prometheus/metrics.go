package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"plaasstop-backend/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Search metrics
	SearchRequestsCounter prometheus.Counter
	SearchResultsReturned prometheus.Histogram

	// Claim metrics
	ClaimAttemptsCounter  prometheus.Counter
	ClaimSuccessCounter   prometheus.Counter
	ClaimConflictsCounter prometheus.Counter

	// Auth sync metrics
	SyncRequestsCounter prometheus.Counter
	FarmsProvisioned    prometheus.Counter
)

// InitMetrics initializes all prometheus metrics with the configured prefix
func InitMetrics(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	SearchRequestsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_farm_search_total",
			Help: "Total number of farm proximity searches",
		},
	)

	SearchResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_farm_search_results",
			Help:    "Number of farms returned per proximity search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	ClaimAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_farm_claim_attempts_total",
			Help: "Total number of farm claim attempts",
		},
	)

	ClaimSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_farm_claim_success_total",
			Help: "Total number of successful farm claims",
		},
	)

	ClaimConflictsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_farm_claim_conflicts_total",
			Help: "Total number of claims rejected because the farm was already claimed",
		},
	)

	SyncRequestsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_sync_total",
			Help: "Total number of identity sync requests",
		},
	)

	FarmsProvisioned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_farms_provisioned_total",
			Help: "Total number of vendor farms provisioned during sync",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}
