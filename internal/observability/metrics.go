package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsadmin_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// StoreOperationLatency records document store latency by operation and collection.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cmsadmin_store_operation_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// StoreOperations counts document store operations by outcome.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsadmin_store_operations_total",
		Help: "Total document store operations",
	}, []string{"operation", "collection", "outcome"})

	// LoginAttempts counts login attempts by outcome (success, invalid, missing_fields).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsadmin_login_attempts_total",
		Help: "Total login attempts by outcome",
	}, []string{"outcome"})

	// Uploads counts upload requests by outcome.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmsadmin_uploads_total",
		Help: "Total uploads by outcome",
	}, []string{"outcome"})

	// UploadBytes records accepted upload sizes.
	UploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cmsadmin_upload_bytes",
		Help:    "Size of accepted uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 9),
	})
)

// TrackStoreOperation returns a function that records latency and outcome when called (e.g. defer).
func TrackStoreOperation(operation, collection string) func(err error) {
	start := time.Now()
	return func(err error) {
		StoreOperationLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		StoreOperations.WithLabelValues(operation, collection, outcome).Inc()
	}
}
