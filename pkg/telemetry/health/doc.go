// Package health serves liveness and readiness probes for the
// serve-metrics and watch commands.
//
// Liveness answers 200 while the process runs. Readiness runs the
// registered component checks concurrently, each bounded by the checker's
// timeout:
//
//   - constraints: the constraint source loaded without errors
//
//   - evidence: the evidence store answers a count query
//
//     checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//     checker.RegisterCheck(health.CheckEvidence, func(ctx context.Context) error {
//     _, err := store.Count(ctx, &evidence.Query{})
//     return err
//     })
//     health.Mount(mux, checker, &cfg.Telemetry.Health, version, commit, buildTime)
package health
