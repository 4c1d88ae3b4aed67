package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// EvaluationIDKey is the context key for evaluation IDs.
	EvaluationIDKey contextKey = "evaluation_id"

	// SchemaIDKey is the context key for the constraint file's schema ID.
	SchemaIDKey contextKey = "schema_id"

	// ConstraintIDKey is the context key for the constraint being evaluated.
	ConstraintIDKey contextKey = "constraint_id"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for span IDs.
	SpanIDKey contextKey = "span_id"
)

// fieldKeys lists the keys copied into log entries, in output order.
var fieldKeys = []contextKey{EvaluationIDKey, SchemaIDKey, ConstraintIDKey, TraceIDKey, SpanIDKey}

// WithEvaluationID adds an evaluation ID to the context.
func WithEvaluationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EvaluationIDKey, id)
}

// GetEvaluationID retrieves the evaluation ID from the context.
func GetEvaluationID(ctx context.Context) string {
	return getString(ctx, EvaluationIDKey)
}

// WithSchemaID adds a schema ID to the context.
func WithSchemaID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SchemaIDKey, id)
}

// GetSchemaID retrieves the schema ID from the context.
func GetSchemaID(ctx context.Context) string {
	return getString(ctx, SchemaIDKey)
}

// WithConstraintID adds a constraint ID to the context.
func WithConstraintID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConstraintIDKey, id)
}

// GetConstraintID retrieves the constraint ID from the context.
func GetConstraintID(ctx context.Context) string {
	return getString(ctx, ConstraintIDKey)
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	return getString(ctx, TraceIDKey)
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	return getString(ctx, SpanIDKey)
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts the known fields from ctx as key/value pairs.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range fieldKeys {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// FromContext returns logger with the fields carried by ctx attached. A nil
// logger falls back to slog.Default().
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// contextHandler adds the context fields to every record logged with a
// context, so that InfoContext and friends need no explicit attributes.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if fields := extractContextFields(ctx); len(fields) > 0 {
		r = r.Clone()
		r.Add(fields...)
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}
