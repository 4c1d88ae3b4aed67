package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/covenant/pkg/config"
)

// EvidenceMetrics tracks evidence storage, retention and replay.
type EvidenceMetrics struct {
	storedTotal   *prometheus.CounterVec
	prunedTotal   prometheus.Counter
	replayedTotal *prometheus.CounterVec
}

// NewEvidenceMetrics creates and registers evidence metrics.
func NewEvidenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvidenceMetrics {
	em := &EvidenceMetrics{
		storedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "evidence",
				Name:      "records_stored_total",
				Help:      "Total number of evidence writes by backend and result",
			},
			[]string{"backend", "result"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "evidence",
				Name:      "records_pruned_total",
				Help:      "Total number of evidence records removed by retention",
			},
		),

		replayedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "evidence",
				Name:      "replays_total",
				Help:      "Total number of replayed evidence records by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(em.storedTotal, em.prunedTotal, em.replayedTotal)

	return em
}

// RecordStored records one write.
func (em *EvidenceMetrics) RecordStored(backend string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	em.storedTotal.WithLabelValues(backend, result).Inc()
}

// RecordPruned adds count to the pruned total.
func (em *EvidenceMetrics) RecordPruned(count int64) {
	if count > 0 {
		em.prunedTotal.Add(float64(count))
	}
}

// RecordReplay records whether a replayed record reproduced its result.
func (em *EvidenceMetrics) RecordReplay(matched bool) {
	result := "match"
	if !matched {
		result = "mismatch"
	}
	em.replayedTotal.WithLabelValues(result).Inc()
}
