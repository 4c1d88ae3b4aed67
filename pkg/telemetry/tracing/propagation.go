package tracing

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator returns the W3C Trace Context and Baggage propagator. It does
// not depend on the otel globals, so evidence carriers round-trip even when
// the tracer was created WithoutGlobal.
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// Extract returns ctx with the trace context found in headers, if any.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// ExtractFromMap extracts trace context from a string map. Replays use it to
// continue the trace stored with an evidence record.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap injects trace context into a string map, such as the trace
// carrier kept with an evidence record.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// HTTPMiddleware continues the caller's trace and echoes its IDs in the
// X-Trace-ID and X-Span-ID response headers.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)

		if span := SpanFromContext(ctx); span.SpanContext().IsValid() {
			w.Header().Set("X-Trace-ID", span.SpanContext().TraceID().String())
			w.Header().Set("X-Span-ID", span.SpanContext().SpanID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidTraceParent reports whether s is a W3C traceparent header
// (version-trace_id-parent_id-flags, lowercase hex) whose IDs are not all
// zeros. Version ff is reserved and rejected.
//
//	00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func ValidTraceParent(s string) bool {
	if !traceParentPattern.MatchString(s) || strings.HasPrefix(s, "ff-") {
		return false
	}
	return s[3:35] != strings.Repeat("0", 32) && s[36:52] != strings.Repeat("0", 16)
}

var traceParentPattern = regexp.MustCompile(`^[0-9a-f]{2}-[0-9a-f]{32}-[0-9a-f]{16}-[0-9a-f]{2}$`)
