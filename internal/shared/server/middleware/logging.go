package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/shared/telemetry"
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

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"presentation_id":   presentationID(c),
			"is_guest":          IsGuest(c),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}

// presentationID prefers an id a handler recorded over the :id route param.
func presentationID(c *gin.Context) string {
	if id := c.GetString("presentationId"); id != "" {
		return id
	}
	if strings.HasPrefix(c.FullPath(), "/api/v1/presentations/:id") {
		return c.Param("id")
	}
	return ""
}
