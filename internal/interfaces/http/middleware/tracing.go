package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig returns the otelgin middleware, or a pass-through when
// tracing is disabled.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher adds request and caller attributes to the server span and marks
// error responses. Place it after TracingWithConfig and RequestID.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := getRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		if id := GetIdentity(c); id.UserID != "" {
			span.SetAttributes(attribute.String("user_id", id.UserID))
		}
		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
	}
}
