// Package telemetry bundles Covenant's observability: structured logging
// with secret redaction, Prometheus metrics, OpenTelemetry tracing and
// health probes.
//
// # Components
//
//   - logging: log/slog handlers with context fields and redaction
//   - metrics: constraint, cache and evidence collectors
//   - tracing: OTLP span export and trace context propagation
//   - health: liveness and readiness probes
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, os.Stderr, version)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tel.Logger().Info("constraints loaded", "files", n)
//	tel.Metrics().RecordReport(file.SchemaID, report.Valid(), elapsed)
//
//	ctx, span := tel.Tracer().Start(ctx, "constraint.file")
//	defer span.End()
//
// # Redaction
//
// Values under secret-looking keys (password, token, api_key...) are masked,
// as are strings matching the built-in API key, bearer token and private key
// patterns. Numbers are never redacted, so document amounts stay readable.
package telemetry
