// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/middleware/requestid"
	"github.com/nimburion/docmanager/pkg/observability/logger"
)

// Recovery logs a recovered panic with its stack and, unless the handler
// already wrote a response, answers 500 in the API error format.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			id := requestid.GetRequestID(c.Request.Context())
			log.Error("panic recovered",
				"request_id", id,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "internal_server_error",
				"message":    "an unexpected error occurred",
				"request_id": id,
			})
		}()
		c.Next()
	}
}
