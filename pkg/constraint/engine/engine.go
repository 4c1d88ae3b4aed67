package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/covenant/pkg/constraint"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/recorder"
	"mercator-hq/covenant/pkg/mcl"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/value"
	"mercator-hq/covenant/pkg/telemetry/logging"
	"mercator-hq/covenant/pkg/telemetry/metrics"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// Error kinds for constraints that were never evaluated.
const (
	ErrorKindTimeout  = "timeout"
	ErrorKindCanceled = "canceled"
)

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics records per-constraint outcomes on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// WithTracer traces each evaluation.
func WithTracer(tracer *tracing.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithRecorder writes an evidence record per constraint.
func WithRecorder(rec *recorder.Recorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// WithCompiler shares an expression cache between engines.
func WithCompiler(compiler *mcl.Compiler) Option {
	return func(e *Engine) { e.compiler = compiler }
}

// Engine evaluates constraint files against documents. It holds no
// per-file state and is safe for concurrent use.
type Engine struct {
	config   *Config
	compiler *mcl.Compiler
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	recorder *recorder.Recorder
}

// New creates an engine.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config: cfg,
		logger: logger.With("component", "constraint.engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compiler == nil {
		e.compiler = mcl.NewCompiler(cfg.CacheSize)
	}
	if e.tracer == nil {
		e.tracer = tracing.Noop()
	}
	return e, nil
}

// Compiler returns the engine's expression cache.
func (e *Engine) Compiler() *mcl.Compiler {
	return e.compiler
}

// Prepare validates file and parses its expressions into the cache. With
// TypeCheck set, expressions are also checked against their signatures.
func (e *Engine) Prepare(file *constraint.File) error {
	if file == nil {
		return errors.New("constraint file is nil")
	}
	if err := file.Validate(e.config.TypeCheck); err != nil {
		return fmt.Errorf("%s: %w", file.Name(), err)
	}

	var errs []error
	for _, c := range file.Constraints {
		if _, err := e.compiler.Compile(c.Expression); err != nil {
			errs = append(errs, fmt.Errorf("constraint %q: %w", c.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", file.Name(), err)
	}
	return nil
}

// Evaluate evaluates every constraint of file against doc. now() is frozen
// for the whole report: at evalCtx's timestamp when it has one, otherwise
// at the time evaluation starts. Evaluation errors are reported per
// constraint; the returned error is reserved for unusable input.
func (e *Engine) Evaluate(ctx context.Context, file *constraint.File, doc value.Value, evalCtx *eval.Context) (*Report, error) {
	if file == nil {
		return nil, errors.New("constraint file is nil")
	}
	if doc == nil {
		return nil, errors.New("document is nil")
	}

	start := time.Now()
	evalCtx = freeze(evalCtx)

	report := &Report{
		EvaluationID:        uuid.New().String(),
		SchemaID:            file.SchemaID,
		ContractVersion:     file.ContractVersion,
		Source:              file.Path,
		EvaluationTimestamp: evalCtx.EvaluationTimestamp,
		FailMode:            e.config.FailMode,
		Results:             make([]Result, 0, len(file.Constraints)),
	}

	ctx = logging.WithEvaluationID(ctx, report.EvaluationID)
	ctx = logging.WithSchemaID(ctx, file.SchemaID)
	logger := logging.FromContext(ctx, e.logger)

	ctx, span := e.tracer.Start(ctx, "constraint.file",
		tracing.NewAttributeBuilder().
			WithFile(file.SchemaID, file.ContractVersion).
			WithEvaluation(report.EvaluationID).
			WithCustom(tracing.AttrConstraints, len(file.Constraints)).
			Build())
	defer span.End()

	deadline := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	for i := range file.Constraints {
		c := &file.Constraints[i]
		if err := deadline.Err(); err != nil {
			report.Results = append(report.Results, abandoned(c, err))
			continue
		}
		report.Results = append(report.Results, e.evaluateOne(ctx, file, c, doc, evalCtx))
	}

	report.Duration = time.Since(start)

	if e.recorder != nil {
		e.record(ctx, logger, file, doc, evalCtx, report)
	}

	valid := report.Valid()
	span.SetAttributes(attribute.Bool(tracing.AttrValid, valid))
	if e.metrics != nil {
		e.metrics.RecordReport(file.SchemaID, valid, report.Duration)
		stats := e.compiler.Stats()
		e.metrics.ObserveCache("expressions", stats.Hits, stats.Misses, stats.Entries)
	}

	passed, violated, errored := report.Counts()
	logger.Debug("constraint file evaluated",
		"source", file.Name(),
		"valid", valid,
		"passed", passed,
		"violated", violated,
		"errored", errored,
		"duration_ms", report.Duration.Milliseconds(),
	)

	return report, nil
}

func (e *Engine) evaluateOne(ctx context.Context, file *constraint.File, c *constraint.Constraint, doc value.Value, evalCtx *eval.Context) Result {
	severity := c.EffectiveSeverity()

	_, span := e.tracer.Start(ctx, "constraint.evaluate")
	defer span.End()
	tracing.SetConstraintAttributes(span, file.SchemaID, c.ID, string(severity))

	start := time.Now()
	var passed bool
	program, err := e.compiler.Compile(c.Expression)
	if err == nil {
		passed, err = program.Evaluate(doc, evalCtx)
	}
	duration := time.Since(start)

	res := Result{
		ConstraintID: c.ID,
		Severity:     severity,
		Outcome:      evidence.ResultOf(passed, err),
		Passed:       err == nil && passed,
		Duration:     duration,
	}
	if err != nil {
		res.Error = err
		res.ErrorKind = string(mclErrors.KindOf(err))
		res.ErrorMessage = err.Error()
		tracing.SetError(span, err, res.ErrorKind)
	}
	if !res.Passed {
		res.Message = c.Message
	}
	tracing.SetOutcome(span, string(res.Outcome))

	if e.metrics != nil {
		e.metrics.RecordConstraint(file.SchemaID, c.ID, string(res.Outcome), res.ErrorKind, duration)
	}

	if err != nil {
		logging.FromContext(logging.WithConstraintID(ctx, c.ID), e.logger).Debug("constraint evaluation failed",
			"error_kind", res.ErrorKind,
			"error", err,
		)
	}
	return res
}

// record writes the evidence of report. A recorder failure is logged and
// does not change the report.
func (e *Engine) record(ctx context.Context, logger *slog.Logger, file *constraint.File, doc value.Value, evalCtx *eval.Context, report *Report) {
	outcomes := make([]recorder.Outcome, len(report.Results))
	for i, res := range report.Results {
		outcomes[i] = recorder.Outcome{
			ConstraintID: res.ConstraintID,
			Severity:     string(res.Severity),
			Expression:   file.Constraints[i].Expression,
			Result:       res.Outcome,
			ErrorKind:    res.ErrorKind,
			ErrorMessage: res.ErrorMessage,
		}
	}

	traceContext := map[string]string{}
	tracing.InjectToMap(ctx, traceContext)

	records, err := e.recorder.Record(ctx, &recorder.Evaluation{
		EvaluationID:        report.EvaluationID,
		SchemaID:            report.SchemaID,
		ContractVersion:     report.ContractVersion,
		EvaluationTimestamp: report.EvaluationTimestamp,
		Document:            doc,
		Previous:            evalCtx.Previous,
		TraceContext:        traceContext,
	}, outcomes)
	for i, r := range records {
		report.Results[i].RecordID = r.ID
	}
	if err != nil {
		logger.Error("failed to record evidence", "error", err)
	}
}

// freeze returns a copy of evalCtx whose timestamp is fixed.
func freeze(evalCtx *eval.Context) *eval.Context {
	frozen := &eval.Context{}
	if evalCtx != nil {
		*frozen = *evalCtx
	}
	frozen.EvaluationTimestamp = frozen.Now()
	return frozen
}

func abandoned(c *constraint.Constraint, err error) Result {
	kind := ErrorKindCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrorKindTimeout
	}
	return Result{
		ConstraintID: c.ID,
		Severity:     c.EffectiveSeverity(),
		Outcome:      evidence.ResultError,
		Error:        err,
		ErrorKind:    kind,
		ErrorMessage: fmt.Sprintf("constraint not evaluated: %v", err),
		Message:      c.Message,
	}
}
