package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on Covenant spans. Custom keys live under the
// "covenant." namespace.
const (
	AttrEvaluationID = "covenant.evaluation_id"
	AttrSchemaID     = "covenant.schema_id"
	AttrContract     = "covenant.contract_version"
	AttrConstraintID = "covenant.constraint.id"
	AttrSeverity     = "covenant.constraint.severity"
	AttrExpression   = "covenant.constraint.expression"
	AttrOutcome      = "covenant.constraint.outcome"
	AttrConstraints  = "covenant.constraints"
	AttrValid        = "covenant.report.valid"
	AttrDocumentHash = "covenant.document.sha256"
	AttrRecordID     = "covenant.evidence.record_id"

	AttrErrorKind    = "covenant.error.kind"
	AttrErrorMessage = "error.message"
)

// SetConstraintAttributes sets the attributes identifying a constraint.
func SetConstraintAttributes(span trace.Span, schemaID, constraintID, severity string) {
	span.SetAttributes(
		attribute.String(AttrSchemaID, schemaID),
		attribute.String(AttrConstraintID, constraintID),
		attribute.String(AttrSeverity, severity),
	)
}

// SetOutcome records the constraint outcome (pass, violated, error).
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
}

// AddEvent adds an event to the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AttributeBuilder collects span attributes before a span starts.
//
//	opt := tracing.NewAttributeBuilder().
//	    WithFile(file.SchemaID, file.ContractVersion).
//	    WithCustom(tracing.AttrConstraints, len(file.Constraints)).
//	    Build()
//	ctx, span := tracer.Start(ctx, "constraint.file", opt)
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates an empty builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{}
}

// WithFile adds the constraint file identity.
func (ab *AttributeBuilder) WithFile(schemaID, contractVersion string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrSchemaID, schemaID),
		attribute.String(AttrContract, contractVersion),
	)
	return ab
}

// WithEvaluation adds the evaluation ID.
func (ab *AttributeBuilder) WithEvaluation(id string) *AttributeBuilder {
	if id != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrEvaluationID, id))
	}
	return ab
}

// WithCustom adds an attribute of any basic type; other values are
// formatted with %v.
func (ab *AttributeBuilder) WithCustom(key string, value interface{}) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	default:
		ab.attrs = append(ab.attrs, attribute.String(key, fmt.Sprintf("%v", v)))
	}
	return ab
}

// Build returns the attributes as a span start option.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Attributes returns the collected attributes.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
