// Package metrics provides Prometheus instrumentation for ShieldNet.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shieldnet",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shieldnet",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DecisionsTotal counts decision engine verdicts.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shieldnet",
			Name:      "decisions_total",
			Help:      "Total payment decisions by verdict.",
		},
		[]string{"decision"},
	)

	// TransactionsTotal counts treasury transactions by status.
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shieldnet",
			Name:      "transactions_total",
			Help:      "Total treasury transactions recorded by status.",
		},
		[]string{"status"},
	)

	// ThreatsReportedTotal counts threat fingerprints shared to the ledger.
	ThreatsReportedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shieldnet",
		Name:      "threats_reported_total",
		Help:      "Total threat fingerprints appended to the intelligence ledger.",
	})

	// LockTimeoutsTotal counts ledger lock-wait timeouts by ledger.
	LockTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shieldnet",
			Name:      "ledger_lock_timeouts_total",
			Help:      "Total lock-wait timeouts on ledger documents.",
		},
		[]string{"ledger"},
	)

	// LedgerOpDuration observes ledger store operation latency.
	LedgerOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shieldnet",
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger store operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"ledger", "op"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		DecisionsTotal,
		TransactionsTotal,
		ThreatsReportedTotal,
		LockTimeoutsTotal,
		LedgerOpDuration,
	)
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
