// Package logging writes one structured log entry per HTTP request.
package logging

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/middleware/requestid"
	"github.com/nimburion/docmanager/pkg/observability/logger"
)

// Log field name constants
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
)

// Config holds configuration for the logging middleware.
type Config struct {
	// ExcludedPathPrefixes disables logging for matching path prefixes.
	ExcludedPathPrefixes []string
}

// DefaultConfig skips health checks and metric scrapes.
func DefaultConfig() Config {
	return Config{ExcludedPathPrefixes: []string{"/health", "/metrics"}}
}

// Logging logs "request completed" at info, or at warn/error for 4xx/5xx.
// Errors attached to the gin context are included.
func Logging(log logger.Logger, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range cfg.ExcludedPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			FieldRequestID, requestid.GetRequestID(c.Request.Context()),
			FieldMethod, c.Request.Method,
			FieldPath, path,
			FieldRoute, c.FullPath(),
			FieldStatus, status,
			FieldDurationMS, time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, FieldError, c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
