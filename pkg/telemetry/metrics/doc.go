// Package metrics provides Prometheus metrics for Covenant.
//
// # Metrics Categories
//
//   - Evaluation: per-constraint outcomes (pass, violated, error), durations,
//     error kinds, whole-file reports and constraint reloads
//   - Cache: hits, misses and size of the parsed-expression cache
//   - Evidence: writes, retention pruning and replay results
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordConstraint("saga", "steps.sum", metrics.OutcomeViolated, "", 40*time.Microsecond)
//	http.Handle("/metrics", collector.Handler())
//
// Constraint IDs are label values; once more than 10000 distinct
// schema/constraint pairs have been seen, new ones are counted under "other".
package metrics
