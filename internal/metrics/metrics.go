package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karirconnect_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "karirconnect_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// NotificationsDelivered counts side-channel delivery attempts
	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karirconnect_notifications_delivered_total",
		Help: "Notification deliveries by channel and status",
	}, []string{"channel", "status"})

	ThreadCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karirconnect_thread_cache_total",
		Help: "Invitation thread cache lookups by result",
	}, []string{"result"})

	ListingsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "karirconnect_listings_expired_total",
		Help: "Job listings closed because their deadline passed",
	})
)

// GinMiddleware records request count and latency per matched route
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
