package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/clipqueue/pkg/metrics"
)

// MetricsMiddleware records an HTTP request's latency and outcome for GET /api/metrics.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}
