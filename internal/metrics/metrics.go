// Package metrics provides Prometheus instrumentation for the Bookvault store.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookvault",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CheckoutsTotal counts checkout attempts by outcome
	// (created, rejected, security_block, gateway_error).
	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "checkouts_total",
			Help:      "Total checkout attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// PaymentVerificationsTotal counts payment callback verifications by result
	// (verified, invalid_signature, already_completed, error).
	PaymentVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "payment_verifications_total",
			Help:      "Total payment callback verifications by result.",
		},
		[]string{"result"},
	)

	// RiskAssessmentsTotal counts network risk assessments by level.
	RiskAssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "risk_assessments_total",
			Help:      "Total network risk assessments by risk level.",
		},
		[]string{"risk"},
	)

	// RiskLookupFallbacksTotal counts external risk lookups that degraded to
	// the local heuristic.
	RiskLookupFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "risk_lookup_fallbacks_total",
			Help:      "Total external risk lookups that fell back to the local heuristic.",
		},
	)

	// OrdersCompletedTotal counts orders that reached the completed status.
	OrdersCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "orders_completed_total",
			Help:      "Total orders completed after signature verification.",
		},
	)

	// OrdersFailedTotal counts orders marked failed.
	OrdersFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookvault",
			Name:      "orders_failed_total",
			Help:      "Total orders marked failed.",
		},
	)

	// OrderAmount observes completed order totals.
	OrderAmount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bookvault",
			Name:      "order_amount",
			Help:      "Completed order totals in currency major units.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 50000, 500000},
		},
	)

	// BooksLowStock tracks books at or below their reorder point.
	BooksLowStock = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookvault",
			Name:      "books_low_stock",
			Help:      "Number of books at or below their reorder point.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookvault", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookvault", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookvault", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookvault", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CheckoutsTotal,
		PaymentVerificationsTotal,
		RiskAssessmentsTotal,
		RiskLookupFallbacksTotal,
		OrdersCompletedTotal,
		OrdersFailedTotal,
		OrderAmount,
		BooksLowStock,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
