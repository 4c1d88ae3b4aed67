package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

func TestNew(t *testing.T) {
	cfg := config.NewDefaultConfig().Telemetry
	cfg.Tracing.Enabled = true
	cfg.Tracing.Sampler = tracing.SamplerAlways

	var buf bytes.Buffer
	exporter := tracetest.NewInMemoryExporter()
	tel, err := New(&cfg, &buf, "test", tracing.WithExporter(exporter), tracing.WithoutGlobal())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.Logger().Info("constraints loaded", "files", 2)
	if !strings.Contains(buf.String(), "constraints loaded") {
		t.Errorf("expected log line, got %q", buf.String())
	}

	_, span := tel.Tracer().Start(context.Background(), "constraint.file")
	span.End()
	if len(exporter.GetSpans()) != 1 {
		t.Errorf("expected 1 span, got %d", len(exporter.GetSpans()))
	}

	if tel.Metrics().Registry() == nil {
		t.Error("expected a metrics registry")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, nil, "test"); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := config.NewDefaultConfig().Telemetry
	cfg.Logging.Level = "verbose"
	if _, err := New(&cfg, &bytes.Buffer{}, "test"); err == nil {
		t.Error("expected error for invalid log level")
	}
}
