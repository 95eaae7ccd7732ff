package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// UnmatchedRoute is the route label of requests no handler matched. Raw URL
// paths are never used as labels.
const UnmatchedRoute = "unmatched"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "requests_inflight",
		Help:      "Requests currently being served.",
	})

	// Contact lists carry a whole pipeline summary, hence the wide range.
	httpResponseSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "Response body size by method and route.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
	}, []string{"method", "route"})

	httpReplays = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "idempotent_replays_total",
		Help:      "Requests answered from a stored idempotency record.",
	}, []string{"route"})

	httpNotModified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crm",
		Subsystem: "http",
		Name:      "not_modified_total",
		Help:      "Conditional GETs answered with 304.",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, httpInflight, httpResponseSize, httpReplays, httpNotModified)
}

// Metrics instruments every request with Prometheus collectors labelled by
// the registered Gin route. Expose them with promhttp.Handler().
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		method := c.Request.Method
		status := c.Writer.Status()

		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpResponseSize.WithLabelValues(method, route).Observe(float64(size))
		}
		if c.Writer.Header().Get(HeaderIdempotencyReplayed) == "true" {
			httpReplays.WithLabelValues(route).Inc()
		}
		if status == 304 {
			httpNotModified.WithLabelValues(route).Inc()
		}
	}
}
