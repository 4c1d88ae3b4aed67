// Package tracing provides OpenTelemetry tracing for Covenant.
//
// # Spans
//
// The constraint engine opens one span per constraint file evaluation
// ("constraint.file") with a child span per constraint ("constraint.evaluate")
// carrying the schema ID, constraint ID, severity and outcome. Evaluation
// errors set the span status to Error with the error category in
// covenant.error.kind.
//
// # Export
//
// Spans are exported over OTLP/gRPC to telemetry.tracing.endpoint. The
// connection is made lazily, so an unreachable collector never blocks
// evaluation.
//
// # Sampling Strategies
//
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces (sample_ratio), by trace ID
//
// # Evidence Correlation
//
// The engine injects the active trace context into each evidence record
// (InjectToMap). A replay extracts it (ExtractFromMap) so that the replay
// span is linked to the original evaluation's trace.
package tracing
