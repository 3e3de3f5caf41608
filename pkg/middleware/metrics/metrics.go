// Package metrics records Prometheus HTTP metrics per route template.
package metrics

import (
	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/observability/metrics"
)

// UnmatchedRoute labels requests that matched no route.
const UnmatchedRoute = "unmatched"

// Metrics records duration, count and in-flight requests. The route label is
// the gin route template, so /collections/:name stays one series.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.TrackRequest()
		defer func() {
			route := c.FullPath()
			if route == "" {
				route = UnmatchedRoute
			}
			done(c.Request.Method, route, c.Writer.Status())
		}()
		c.Next()
	}
}
