package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinRequestIDKey is the gin context key holding the request ID.
const GinRequestIDKey = "request_id"

// viewIDParam is the route parameter naming a cart or search view.
const viewIDParam = "id"

// GinMiddleware logs one line per request and puts a request-scoped logger
// into the request context, so logger.L works in handlers and in the views
// and gateway calls they make. The request and view IDs ride along.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		reqLogger := logger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", route),
		)
		ctx := WithContext(c.Request.Context(), reqLogger)
		requestID := c.GetString(GinRequestIDKey)
		if requestID != "" {
			ctx = WithRequestID(ctx, requestID)
		}
		if viewID := c.Param(viewIDParam); viewID != "" {
			ctx = WithViewID(ctx, viewID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("HTTP Request", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("HTTP Request", fields...)
		default:
			reqLogger.Info("HTTP Request", fields...)
		}
	}
}

// Recovery turns a handler panic into a logged 500 carrying the API error
// envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := c.GetString(GinRequestIDKey)
			logger.Error("Panic recovered",
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "ERR_INTERNAL",
					"message":    "An unexpected error occurred",
					"request_id": requestID,
				},
			})
		}()
		c.Next()
	}
}
