package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/controller"
	"github.com/nimburion/docmanager/pkg/health"
	"github.com/nimburion/docmanager/pkg/middleware/logging"
	middlewaremetrics "github.com/nimburion/docmanager/pkg/middleware/metrics"
	"github.com/nimburion/docmanager/pkg/middleware/recovery"
	"github.com/nimburion/docmanager/pkg/middleware/requestid"
	middlewaretracing "github.com/nimburion/docmanager/pkg/middleware/tracing"
	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/observability/metrics"
	"github.com/nimburion/docmanager/pkg/version"
)

// RouterOptions selects what NewRouter mounts.
type RouterOptions struct {
	Logger    logger.Logger
	Documents *controller.DocumentController
	Health    *health.Registry
	// Metrics enables the metrics middleware and GET /metrics when set.
	Metrics *metrics.Registry
	Tracing bool
	Version version.Info
}

// NewRouter builds the gin engine: request id, panic recovery, request
// logging, then optional metrics and tracing, in that order.
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		requestid.RequestID(),
		recovery.Recovery(opts.Logger),
		logging.Logging(opts.Logger, logging.DefaultConfig()),
	)
	if opts.Metrics != nil {
		r.Use(middlewaremetrics.Metrics())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.Tracing {
		r.Use(middlewaretracing.Tracing(middlewaretracing.Config{
			TracerName:           "docmanager-http",
			ExcludedPathPrefixes: []string{"/health", "/metrics"},
		}))
	}

	if opts.Health != nil {
		r.GET("/health", controller.HealthHandler(opts.Health))
	}
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, opts.Version)
	})
	if opts.Documents != nil {
		opts.Documents.RegisterRoutes(r)
	}
	return r
}
