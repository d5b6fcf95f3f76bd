package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeAborted     = "aborted"
	OutcomeError       = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courtbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtbook_booking_operations_total",
			Help: "Booking creates and cancels by outcome",
		},
		[]string{"operation", "outcome"},
	)

	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtbook_tx_retries_total",
			Help: "Transactions run again after a serialization conflict",
		},
	)

	CacheInvalidationErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtbook_cache_invalidation_errors_total",
			Help: "Cache invalidations or change notifications that failed after commit",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBookingOutcome(operation, outcome string) {
	BookingOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordTxRetry() {
	TxRetriesTotal.Inc()
}

func RecordCacheInvalidationError() {
	CacheInvalidationErrorsTotal.Inc()
}

// GinMiddleware records one request sample per handled route. Unmatched
// routes are grouped under "unmatched" to keep label cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
