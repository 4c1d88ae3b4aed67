package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/covenant/pkg/config"
)

// Outcome labels for constraint evaluations.
const (
	OutcomePass     = "pass"
	OutcomeViolated = "violated"
	OutcomeError    = "error"
)

// overflowLabel replaces constraint IDs once the cardinality limit is hit.
const overflowLabel = "other"

// Collector owns the Prometheus registry and every Covenant metric. A
// Collector built from a disabled configuration accepts all calls and
// records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	cache      *CacheMetrics
	evidence   *EvidenceMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector with the specified configuration and
// registry. A nil registry creates a fresh one.
//
// Example:
//
//	cfg := config.NewDefaultConfig()
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = config.DefaultEvaluationDurationBuckets
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}

	c.evaluation = NewEvaluationMetrics(cfg, registry)
	c.cache = NewCacheMetrics(cfg, registry)
	c.evidence = NewEvidenceMetrics(cfg, registry)

	return c
}

// RecordConstraint records the outcome of one constraint evaluation.
//
// Parameters:
//   - schemaID: schema_id of the constraint file
//   - constraintID: id of the constraint
//   - outcome: OutcomePass, OutcomeViolated or OutcomeError
//   - errorKind: error category when outcome is OutcomeError, else ""
//   - duration: time spent evaluating the expression
func (c *Collector) RecordConstraint(schemaID, constraintID, outcome, errorKind string, duration time.Duration) {
	if !c.config.IsEnabled() {
		return
	}

	if !c.cardinalityLimiter.Allow(schemaID + "\x00" + constraintID) {
		constraintID = overflowLabel
	}

	c.evaluation.RecordConstraint(schemaID, constraintID, outcome, duration)
	if outcome == OutcomeError {
		c.evaluation.RecordError(schemaID, errorKind)
	}
}

// RecordReport records a completed evaluation of a whole constraint file.
func (c *Collector) RecordReport(schemaID string, valid bool, duration time.Duration) {
	if !c.config.IsEnabled() {
		return
	}
	c.evaluation.RecordReport(schemaID, valid, duration)
}

// ObserveCache records a snapshot of cumulative cache counters.
func (c *Collector) ObserveCache(cacheName string, hits, misses uint64, entries int) {
	if !c.config.IsEnabled() {
		return
	}
	c.cache.Observe(cacheName, hits, misses, entries)
}

// RecordEvidenceStored records an evidence write.
func (c *Collector) RecordEvidenceStored(backend string, err error) {
	if !c.config.IsEnabled() {
		return
	}
	c.evidence.RecordStored(backend, err)
}

// RecordEvidencePruned records records removed by retention.
func (c *Collector) RecordEvidencePruned(count int64) {
	if !c.config.IsEnabled() {
		return
	}
	c.evidence.RecordPruned(count)
}

// RecordReplay records the result of replaying one evidence record.
func (c *Collector) RecordReplay(matched bool) {
	if !c.config.IsEnabled() {
		return
	}
	c.evidence.RecordReplay(matched)
}

// RecordReload records a constraint file reload.
func (c *Collector) RecordReload(success bool) {
	if !c.config.IsEnabled() {
		return
	}
	c.evaluation.RecordReload(success)
}

// Registry returns the Prometheus registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
