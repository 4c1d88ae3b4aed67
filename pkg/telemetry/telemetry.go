package telemetry

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/telemetry/logging"
	"mercator-hq/covenant/pkg/telemetry/metrics"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// Telemetry holds the configured logger, metrics collector and tracer.
type Telemetry struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// New builds every telemetry component from cfg. Logs go to w.
func New(cfg *config.TelemetryConfig, w io.Writer, version string, opts ...tracing.Option) (*Telemetry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telemetry config is nil")
	}

	logger, err := logging.FromConfig(&cfg.Logging, w)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, append([]tracing.Option{tracing.WithVersion(version)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, prometheus.NewRegistry()),
		tracer:  tracer,
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *logging.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
