package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/shared/telemetry"
)

// quietRoutes are polled by load balancers and scrapers; they log at debug.
var quietRoutes = map[string]bool{
	"/api/v1/health": true,
	"/metrics":       true,
}

// Logging writes one "request.complete" entry per request. 5xx responses log
// at error and 4xx at warn.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes":       c.Writer.Size(),
			"client_ip":   c.ClientIP(),
		}
		if id := c.GetString("optimizationId"); id != "" {
			fields["optimization_id"] = id
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		case quietRoutes[c.FullPath()]:
			telemetry.Debug("request.complete", fields)
		default:
			fields["user_agent"] = c.Request.UserAgent()
			telemetry.Info("request.complete", fields)
		}
	}
}
