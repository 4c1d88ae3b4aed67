package replay

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/recorder"
	"mercator-hq/covenant/pkg/mcl"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/value"
	"mercator-hq/covenant/pkg/telemetry/metrics"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// Status is the verdict on one replayed record.
type Status string

const (
	// StatusMatch: re-evaluation reached the recorded result.
	StatusMatch Status = "match"
	// StatusMismatch: the result differs, or the stored document no longer
	// matches its hash.
	StatusMismatch Status = "mismatch"
	// StatusSkipped: the record kept no document.
	StatusSkipped Status = "skipped"
)

// Result is the replay of one record.
type Result struct {
	RecordID     string          `json:"record_id"`
	SchemaID     string          `json:"schema_id"`
	ConstraintID string          `json:"constraint_id"`
	Status       Status          `json:"status"`
	Recorded     evidence.Result `json:"recorded"`
	Replayed     evidence.Result `json:"replayed,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Report summarizes a replay run.
type Report struct {
	Results    []Result `json:"results"`
	Matched    int      `json:"matched"`
	Mismatched int      `json:"mismatched"`
	Skipped    int      `json:"skipped"`
}

// OK reports whether no record mismatched.
func (r *Report) OK() bool {
	return r.Mismatched == 0
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusMatch:
		r.Matched++
	case StatusMismatch:
		r.Mismatched++
	case StatusSkipped:
		r.Skipped++
	}
}

// Option customizes a Replayer.
type Option func(*Replayer)

// WithMetrics counts replays on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Replayer) { r.metrics = collector }
}

// WithTracer traces each replay, linked to the recorded evaluation's trace.
func WithTracer(tracer *tracing.Tracer) Option {
	return func(r *Replayer) { r.tracer = tracer }
}

// WithCompiler shares an expression cache.
func WithCompiler(compiler *mcl.Compiler) Option {
	return func(r *Replayer) { r.compiler = compiler }
}

// Replayer re-evaluates evidence records.
type Replayer struct {
	compiler *mcl.Compiler
	tracer   *tracing.Tracer
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New creates a Replayer.
func New(logger *slog.Logger, opts ...Option) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Replayer{
		logger: logger.With("component", "evidence.replay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.compiler == nil {
		r.compiler = mcl.NewCompiler(0)
	}
	if r.tracer == nil {
		r.tracer = tracing.Noop()
	}
	return r
}

// Replay re-evaluates record against its stored document, previous
// snapshot and frozen timestamp.
func (r *Replayer) Replay(ctx context.Context, record *evidence.Record) Result {
	if !record.Replayable() {
		return r.finish(ctx, record, Result{Status: StatusSkipped, Reason: "document not stored"})
	}

	doc, err := value.DecodeJSON(record.Document)
	if err != nil {
		return r.finish(ctx, record, Result{Status: StatusMismatch, Reason: fmt.Sprintf("stored document: %v", err)})
	}
	return r.ReplayWith(ctx, record, doc)
}

// ReplayWith re-evaluates record against doc, which is first checked
// against the recorded document hash. Hash-only records are replayed this
// way with a document supplied by the caller.
func (r *Replayer) ReplayWith(ctx context.Context, record *evidence.Record, doc value.Value) Result {
	if hash := recorder.HashDocument(doc); hash != record.DocumentHash {
		return r.finish(ctx, record, Result{
			Status: StatusMismatch,
			Reason: fmt.Sprintf("document hash %s does not match recorded %s", short(hash), short(record.DocumentHash)),
		})
	}

	evalCtx := eval.Frozen(record.EvaluationTimestamp)
	if len(record.Previous) > 0 {
		prev, err := value.DecodeJSON(record.Previous)
		if err != nil {
			return r.finish(ctx, record, Result{Status: StatusMismatch, Reason: fmt.Sprintf("stored previous document: %v", err)})
		}
		evalCtx.Previous = prev
	}

	var passed bool
	program, err := r.compiler.Compile(record.Expression)
	if err == nil {
		passed, err = program.Evaluate(doc, evalCtx)
	}

	res := Result{Replayed: evidence.ResultOf(passed, err)}
	if err != nil {
		res.ErrorKind = string(mclErrors.KindOf(err))
	}

	switch {
	case res.Replayed != record.Result:
		res.Status = StatusMismatch
		res.Reason = fmt.Sprintf("recorded %s, replayed %s", record.Result, res.Replayed)
	case res.Replayed == evidence.ResultError && res.ErrorKind != record.ErrorKind:
		res.Status = StatusMismatch
		res.Reason = fmt.Sprintf("recorded error kind %s, replayed %s", record.ErrorKind, res.ErrorKind)
	default:
		res.Status = StatusMatch
	}
	return r.finish(ctx, record, res)
}

func (r *Replayer) finish(ctx context.Context, record *evidence.Record, res Result) Result {
	res.RecordID = record.ID
	res.SchemaID = record.SchemaID
	res.ConstraintID = record.ConstraintID
	res.Recorded = record.Result

	_, span := r.tracer.Start(r.linked(ctx, record), "evidence.replay")
	tracing.SetConstraintAttributes(span, record.SchemaID, record.ConstraintID, record.Severity)
	span.SetAttributes(
		attribute.String(tracing.AttrRecordID, record.ID),
		attribute.String("covenant.replay.status", string(res.Status)),
	)
	span.End()

	if res.Status != StatusSkipped && r.metrics != nil {
		r.metrics.RecordReplay(res.Status == StatusMatch)
	}

	if res.Status == StatusMismatch {
		r.logger.WarnContext(ctx, "replay mismatch",
			"record_id", record.ID,
			"constraint_id", record.ConstraintID,
			"reason", res.Reason,
		)
	}
	return res
}

// linked returns ctx carrying the recorded trace as parent, when the record
// holds a valid traceparent and ctx has no span of its own.
func (r *Replayer) linked(ctx context.Context, record *evidence.Record) context.Context {
	if !tracing.ValidTraceParent(record.TraceContext["traceparent"]) || tracing.TraceID(ctx) != "" {
		return ctx
	}
	return tracing.ExtractFromMap(ctx, record.TraceContext)
}

// ReplayAll replays records in order.
func (r *Replayer) ReplayAll(ctx context.Context, records []*evidence.Record) (*Report, error) {
	report := &Report{}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(r.Replay(ctx, record))
	}
	return report, nil
}

// ReplayQuery streams the records matching q from store and replays each.
func (r *Replayer) ReplayQuery(ctx context.Context, store evidence.Storage, q *evidence.Query) (*Report, error) {
	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for record := range recordsCh {
		report.add(r.Replay(ctx, record))
	}
	if err := <-errCh; err != nil {
		return report, err
	}

	r.logger.InfoContext(ctx, "replay completed",
		"matched", report.Matched,
		"mismatched", report.Mismatched,
		"skipped", report.Skipped,
	)
	return report, nil
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
