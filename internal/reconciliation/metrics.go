package reconciliation

import "github.com/prometheus/client_golang/prometheus"

var (
	reconcileStaleOrders = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookvault",
		Subsystem: "reconciliation",
		Name:      "stale_pending_orders",
		Help:      "Number of abandoned pending orders found in last sweep.",
	})

	reconcileCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bookvault",
		Subsystem: "reconciliation",
		Name:      "orders_cancelled_total",
		Help:      "Total abandoned orders cancelled by the sweeper.",
	})

	reconcileLowStock = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bookvault",
		Subsystem: "reconciliation",
		Name:      "low_stock_books",
		Help:      "Number of books at or below their reorder point in last sweep.",
	})

	reconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookvault",
		Subsystem: "reconciliation",
		Name:      "run_duration_seconds",
		Help:      "Duration of sweep runs in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	reconcileErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bookvault",
		Subsystem: "reconciliation",
		Name:      "errors_total",
		Help:      "Total sweep errors.",
	})
)

func init() {
	prometheus.MustRegister(
		reconcileStaleOrders,
		reconcileCancelledTotal,
		reconcileLowStock,
		reconcileDuration,
		reconcileErrors,
	)
}
