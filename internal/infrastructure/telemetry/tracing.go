package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of storefront spans.
const TracerName = "storefront"

// Span attribute keys shared by the gateway, services and views.
const (
	SpanAttrUserID     = "user_id"
	SpanAttrViewID     = "view_id"
	SpanAttrItemID     = "item_id"
	SpanAttrQuery      = "query"
	SpanAttrLineCount  = "line_count"
	SpanAttrOrderCount = "order_count"
	SpanAttrStatus     = "result_status"
	SpanAttrUpstream   = "upstream_operation"
)

// SpanOption is a span start option.
type SpanOption = trace.SpanStartOption

// WithAttribute sets one attribute at span start. value is converted with
// the same rules as SetAttributes.
func WithAttribute(key string, value any) SpanOption {
	return trace.WithAttributes(attributeOf(key, value))
}

// WithSpanKind sets the span kind; spans are internal otherwise.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return trace.WithSpanKind(kind)
}

// StartSpan starts a span on the global tracer provider. The caller ends it:
//
//	ctx, span := telemetry.StartSpan(ctx, "cart_view.load")
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span named "<component>.<operation>".
func StartServiceSpan(ctx context.Context, component, operation string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, component+"."+operation, opts...)
}

// SetAttributes sets alternating key/value pairs on span; a pair whose key
// is not a string is dropped.
func SetAttributes(span trace.Span, kv ...any) {
	if span == nil || len(kv) < 2 {
		return
	}
	var attrs []attribute.KeyValue
	for i := 1; i < len(kv); i += 2 {
		if key, ok := kv[i-1].(string); ok {
			attrs = append(attrs, attributeOf(key, kv[i]))
		}
	}
	span.SetAttributes(attrs...)
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordDegradation adds a "degraded" event listing reasonCodes without
// touching the span status.
func RecordDegradation(span trace.Span, reasonCodes []string) {
	if span == nil || len(reasonCodes) == 0 {
		return
	}
	span.AddEvent("degraded", trace.WithAttributes(attribute.StringSlice("reasons", reasonCodes)))
}

// GetTraceID returns the hex trace ID active in ctx, or "" without a span.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the hex span ID active in ctx, or "" without a span.
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}

func attributeOf(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		// decimal.Decimal totals and typed string enums land here
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(value))
}
