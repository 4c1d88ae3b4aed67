// Package server runs the HTTP endpoint of a long-running covenant
// process: Prometheus metrics, liveness and readiness probes, and build
// information.
//
// Handlers are wrapped, outermost first, in panic recovery, W3C trace
// context extraction and request logging.
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", collector.Handler())
//	health.Mount(mux, checker, &cfg.Telemetry.Health, version, commit, buildDate)
//
//	srv := server.New(server.DefaultConfig(":9090"), mux, logger)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is canceled, then shuts down gracefully: new
// connections are refused and active requests get up to ShutdownTimeout
// to complete.
package server
