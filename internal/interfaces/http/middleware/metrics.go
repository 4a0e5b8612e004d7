package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/prometheus"
)

// Metrics records one observation per request.  The route template is used
// as the path label so parameterized routes do not explode cardinality.
func Metrics(collector prometheus.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(started))
	}
}
