// Package engine evaluates constraint files against JSON documents.
//
// An Engine compiles each expression once, through a shared mcl.Compiler,
// and evaluates every constraint of a file with now() frozen to a single
// timestamp. The outcome of each constraint is pass, violated or error;
// a Report aggregates them:
//
//	eng, err := engine.New(engine.DefaultConfig(), logger,
//	    engine.WithMetrics(collector),
//	    engine.WithRecorder(rec),
//	)
//	report, err := eng.Evaluate(ctx, file, doc, nil)
//	if !report.Valid() {
//	    // an error-severity constraint was violated (or errored, fail-closed)
//	}
//
// Only error-severity constraints decide validity. In fail-closed mode an
// evaluation error counts as a failure; in fail-open mode it is reported
// and ignored.
//
// With a recorder attached, every result is written as an evidence record
// carrying the document hash, the frozen timestamp and the active trace
// context, so the decision can be replayed later.
package engine
