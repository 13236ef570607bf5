package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	viewIDKey    contextKey = "view_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// FromContextOr retrieves the logger from context, or fallback.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return fallback
}

// WithRequestID records the request ID on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID records the user ID on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithViewID records the view session ID on ctx.
func WithViewID(ctx context.Context, viewID string) context.Context {
	return context.WithValue(ctx, viewIDKey, viewID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	s, _ := ctx.Value(userIDKey).(string)
	return s
}

// GetViewID retrieves view ID from context
func GetViewID(ctx context.Context) string {
	s, _ := ctx.Value(viewIDKey).(string)
	return s
}

// ContextLogger injects trace_id, span_id, request_id, user_id and view_id
// from its context into every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger over the logger stored in ctx.
//
//	logger.L(ctx).Info("cart loaded", zap.Int("lines", n))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger over an explicit logger.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) enrichedLogger() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}

	fields := make([]zap.Field, 0, 5)
	if spanCtx := trace.SpanFromContext(cl.ctx).SpanContext(); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if v := GetRequestID(cl.ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := GetUserID(cl.ctx); v != "" {
		fields = append(fields, zap.String("user_id", v))
	}
	if v := GetViewID(cl.ctx); v != "" {
		fields = append(fields, zap.String("view_id", v))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// With creates a child ContextLogger with additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.base().With(fields...)}
}

func (cl *ContextLogger) base() *zap.Logger {
	if cl.logger == nil {
		return zap.NewNop()
	}
	return cl.logger
}

// Debug logs at debug level.
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Debug(msg, fields...)
}

// Info logs at info level.
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Info(msg, fields...)
}

// Warn logs at warn level.
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Warn(msg, fields...)
}

// Error logs at error level.
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Error(msg, fields...)
}

// Zap returns the enriched *zap.Logger.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrichedLogger()
}
