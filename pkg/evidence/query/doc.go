// Package query validates evidence queries and fills in their defaults.
//
//	q := &evidence.Query{SchemaID: "payment-saga", Result: evidence.ResultViolated}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	query.ApplyDefaults(q) // Limit 100, newest first
//	records, err := store.Query(ctx, q)
//
// ParseTime turns command line bounds such as "7d" or "2026-01-31" into
// times.
package query
