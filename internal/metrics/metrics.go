package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics holds the process collectors. All methods are nil-safe so callers
// can run without metrics in tests.
type Metrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	sheetCalls     *prometheus.CounterVec
	sheetLatency   *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
}

// New registers the collectors on reg. Use a fresh prometheus.NewRegistry() per
// process (or per test) to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deployments",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deployments",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		sheetCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deployments",
			Subsystem: "sheets",
			Name:      "calls_total",
			Help:      "Remote spreadsheet calls by operation and outcome",
		}, []string{"op", "outcome"}),
		sheetLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deployments",
			Subsystem: "sheets",
			Name:      "call_duration_seconds",
			Help:      "Latency of remote spreadsheet calls",
			Buckets:   histogramBuckets,
		}, []string{"op"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deployments",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.requestTotal, m.requestLatency, m.sheetCalls, m.sheetLatency, m.rateLimitHits)
	}
	return m
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		m.requestTotal.With(labels).Inc()
		m.requestLatency.With(labels).Observe(time.Since(start).Seconds())
	}
}

// ObserveSheetCall implements sheets.Observer.
func (m *Metrics) ObserveSheetCall(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sheetCalls.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
	m.sheetLatency.With(prometheus.Labels{"op": op}).Observe(d.Seconds())
}

func (m *Metrics) RateLimitHit(route string) {
	if m == nil {
		return
	}
	m.rateLimitHits.With(prometheus.Labels{"route": route}).Inc()
}
