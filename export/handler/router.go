package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/resp"
	"github.com/ncobase/docport/tracing"
)

// Version is the reported service version, overridable at build time.
var Version = "dev"

// Register mounts the export API onto the engine. Health and download stay
// outside the authenticated group: probes need no key, and downloads are
// authorized by the per-job code alone so a client can hand the link to a
// browser.
func Register(r *gin.Engine, h *ExportHandler, auth *config.Auth) {
	r.Use(traceMiddleware())

	r.GET("/health", func(c *gin.Context) {
		resp.Success(c.Writer, map[string]any{"status": "healthy", "version": Version})
	})
	r.GET("/api/v1/download/:job_id", h.Download)

	v1 := r.Group("/api/v1", apiKeyMiddleware(auth))
	{
		v1.POST("/export", h.Submit)
		v1.GET("/status/:job_id", h.Status)
		v1.DELETE("/jobs/:job_id", h.Delete)
		v1.GET("/stats", h.Stats)
	}
}

// traceMiddleware ensures every request context carries a trace id and
// echoes it back to the client.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if tid := c.GetHeader(tracing.TraceIDHeader); tid != "" {
			ctx = tracing.SetTraceID(ctx, tid)
		}
		ctx, traceID := tracing.EnsureTraceID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(tracing.TraceIDHeader, traceID)
		c.Next()
	}
}

// apiKeyMiddleware accepts the configured key via X-API-Key or a bearer
// token.
func apiKeyMiddleware(auth *config.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			if bearer := c.GetHeader("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
				key = strings.TrimPrefix(bearer, "Bearer ")
			}
		}
		if key == "" || key != auth.APIKey {
			resp.Fail(c.Writer, resp.UnAuthorized("invalid or missing API key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
