package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/covenant/pkg/config"
)

// EvaluationMetrics tracks constraint evaluation.
//
// Metrics:
//   - covenant_constraint_evaluations_total{schema_id, constraint_id, outcome}
//   - covenant_constraint_evaluation_duration_seconds{schema_id}
//   - covenant_evaluation_errors_total{schema_id, kind}
//   - covenant_reports_total{schema_id, valid}
//   - covenant_report_duration_seconds{schema_id}
//   - covenant_constraint_reloads_total{result}
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	reportsTotal       *prometheus.CounterVec
	reportDuration     *prometheus.HistogramVec
	reloadsTotal       *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "constraint_evaluations_total",
				Help:      "Total number of constraint evaluations by outcome",
			},
			[]string{"schema_id", "constraint_id", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "constraint_evaluation_duration_seconds",
				Help:      "Duration of a single constraint evaluation in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"schema_id"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "evaluation_errors_total",
				Help:      "Total number of evaluation errors by error kind",
			},
			[]string{"schema_id", "kind"},
		),

		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reports_total",
				Help:      "Total number of constraint file evaluations",
			},
			[]string{"schema_id", "valid"},
		),

		reportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "report_duration_seconds",
				Help:      "Duration of a constraint file evaluation in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"schema_id"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "constraint_reloads_total",
				Help:      "Total number of constraint file reloads",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.errorsTotal,
		em.reportsTotal,
		em.reportDuration,
		em.reloadsTotal,
	)

	return em
}

// RecordConstraint records one constraint outcome and its duration.
func (em *EvaluationMetrics) RecordConstraint(schemaID, constraintID, outcome string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(schemaID, constraintID, outcome).Inc()
	em.evaluationDuration.WithLabelValues(schemaID).Observe(duration.Seconds())
}

// RecordError records an evaluation error by kind.
func (em *EvaluationMetrics) RecordError(schemaID, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	em.errorsTotal.WithLabelValues(schemaID, kind).Inc()
}

// RecordReport records a whole-file evaluation.
func (em *EvaluationMetrics) RecordReport(schemaID string, valid bool, duration time.Duration) {
	em.reportsTotal.WithLabelValues(schemaID, boolLabel(valid)).Inc()
	em.reportDuration.WithLabelValues(schemaID).Observe(duration.Seconds())
}

// RecordReload records a reload attempt.
func (em *EvaluationMetrics) RecordReload(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	em.reloadsTotal.WithLabelValues(result).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
