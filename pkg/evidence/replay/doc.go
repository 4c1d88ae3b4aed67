// Package replay re-evaluates stored evidence and reports whether each
// decision is reproduced.
//
// A record is replayed against its stored canonical document and previous
// snapshot, with now() frozen at the recorded evaluation timestamp. The
// document is checked against the recorded hash first. Records stored
// without their document are skipped, unless the caller supplies the
// document through ReplayWith.
//
//	report, err := replay.New(logger).ReplayQuery(ctx, store, &evidence.Query{SchemaID: "payment-saga"})
//	if err != nil {
//	    return err
//	}
//	if !report.OK() {
//	    // a past decision no longer reproduces
//	}
package replay
