package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nclexkeys/backend/internal/metrics"
)

// Metrics records request counts and latency labelled by the matched route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
