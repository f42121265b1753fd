package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if slot, ok := c.Get("reportSlot"); ok {
			fields["report_slot"] = slot
		}
		if id, ok := c.Get("analysisId"); ok {
			fields["analysis_id"] = id
		}
		telemetry.Info("request.complete", fields)
	}
}
