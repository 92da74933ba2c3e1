package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nibernar/project-service/ctxutil"
	"github.com/nibernar/project-service/logging/logger"
	"github.com/nibernar/project-service/net/resp"
)

// traceHeader propagates trace ids across services.
const traceHeader = "X-Trace-Id"

// Trace ensures every request carries a trace id, honoring an inbound header
// and echoing the id back in the response.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(traceHeader); id != "" {
			ctx = ctxutil.SetTraceID(ctx, id)
		}
		ctx, id := ctxutil.EnsureTraceID(ctx)

		if userID := c.GetHeader(userIDHeader); userID != "" {
			ctx = ctxutil.SetUserID(ctx, userID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(traceHeader, id)
		c.Next()
	}
}

// Logger emits one structured access log line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		ctx := c.Request.Context()
		logger.WithFields(ctx, logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Milliseconds(),
		}).Info("request completed")
	}
}

// Recovery converts panics into the standard error envelope with a logged
// cause. The cause never reaches the response body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Errorf(c.Request.Context(), "panic recovered: %v", recovered)
		resp.Fail(c.Writer, nil)
		c.Abort()
	})
}
