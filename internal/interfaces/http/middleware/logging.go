package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
)

// slowRequestThreshold marks requests worth a warning even when they succeed.
const slowRequestThreshold = 3 * time.Second

// skipLogPaths are high-frequency probe paths that would drown the log.
var skipLogPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// RequestLogging logs one line per request with method, path, status, and
// latency.  5xx responses log at error level, 4xx and slow requests at warn.
func RequestLogging(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipLogPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		started := time.Now()
		c.Next()
		elapsed := time.Since(started)

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("latency", elapsed),
			logging.String("request_id", GetRequestID(c)),
			logging.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case elapsed > slowRequestThreshold:
			log.Warn("slow request", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}
