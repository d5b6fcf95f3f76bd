package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBookingOutcome(t *testing.T) {
	BookingOperationsTotal.Reset()

	RecordBookingOutcome("create", OutcomeSuccess)
	RecordBookingOutcome("create", OutcomeSuccess)
	RecordBookingOutcome("create", OutcomeUnavailable)
	RecordBookingOutcome("cancel", OutcomeSuccess)

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingOperationsTotal.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingOperationsTotal.WithLabelValues("create", OutcomeUnavailable)))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingOperationsTotal.WithLabelValues("cancel", OutcomeSuccess)))
}

func TestRecordTxRetry(t *testing.T) {
	testCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtbook_tx_retries_total_test",
		Help: "test",
	})

	old := TxRetriesTotal
	TxRetriesTotal = testCounter
	defer func() { TxRetriesTotal = old }()

	RecordTxRetry()
	RecordTxRetry()

	assert.Equal(t, float64(2), testutil.ToFloat64(testCounter))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/courts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/courts/a", "/courts/b", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/courts/:id", "204")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(HTTPRequestDuration))
}
