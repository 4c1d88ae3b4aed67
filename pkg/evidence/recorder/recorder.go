package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/mcl/value"
	"mercator-hq/covenant/pkg/telemetry/metrics"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// Backend labels write metrics ("memory", "sqlite").
	Backend string

	// AsyncBuffer is the size of the async write channel buffer. 0 writes
	// synchronously inside Record.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing evidence to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// StoreDocuments keeps the canonical document in each record.
	// Default: true
	StoreDocuments bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		StoreDocuments: true,
	}
}

// ConfigFrom builds a recorder configuration from the evidence section.
func ConfigFrom(cfg *config.EvidenceConfig) *Config {
	c := DefaultConfig()
	c.Backend = cfg.Backend
	c.StoreDocuments = cfg.KeepsDocuments()
	if cfg.AsyncBuffer != nil {
		c.AsyncBuffer = *cfg.AsyncBuffer
	}
	if cfg.WriteTimeout > 0 {
		c.WriteTimeout = cfg.WriteTimeout
	}
	return c
}

// Evaluation identifies one evaluation of a constraint file against a
// document.
type Evaluation struct {
	EvaluationID        string
	SchemaID            string
	ContractVersion     string
	EvaluationTimestamp string
	Document            value.Value
	Previous            value.Value // nil when there is no previous snapshot

	// TraceContext holds W3C trace headers for correlation.
	TraceContext map[string]string
}

// Outcome is the result of one constraint within an Evaluation.
type Outcome struct {
	ConstraintID string
	Severity     string
	Expression   string
	Result       evidence.Result
	ErrorKind    string
	ErrorMessage string
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithMetrics counts writes on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Recorder) { r.metrics = collector }
}

// WithClock overrides the clock used for RecordedAt.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) { r.clock = clock }
}

// Recorder turns evaluation outcomes into evidence records and writes them
// to storage, asynchronously unless AsyncBuffer is 0.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	metrics    *metrics.Collector
	clock      func() time.Time
}

// New creates a recorder writing to storage. Close must be called to flush
// queued records.
func New(storage evidence.Storage, cfg *Config, logger *slog.Logger, opts ...Option) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		done:    make(chan struct{}),
		logger:  logger.With("component", "evidence.recorder"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.AsyncBuffer > 0 {
		r.recordChan = make(chan *evidence.Record, cfg.AsyncBuffer)
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Debug("evidence recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
		"store_documents", cfg.StoreDocuments,
	)

	return r
}

// Record builds one record per outcome and queues them for writing. When
// queueing fails part way, only the records queued before the failure are
// returned.
func (r *Recorder) Record(ctx context.Context, ev *Evaluation, outcomes []Outcome) ([]*evidence.Record, error) {
	select {
	case <-r.done:
		return nil, evidence.NewRecorderError("", context.Canceled)
	default:
	}

	base, err := r.base(ev)
	if err != nil {
		return nil, err
	}

	records := make([]*evidence.Record, 0, len(outcomes))
	for _, o := range outcomes {
		record := *base
		record.ID = uuid.New().String()
		record.ConstraintID = o.ConstraintID
		record.Severity = o.Severity
		record.Expression = o.Expression
		record.Result = o.Result
		record.ErrorKind = o.ErrorKind
		record.ErrorMessage = o.ErrorMessage
		if err := r.enqueue(ctx, &record); err != nil {
			return records, err
		}
		records = append(records, &record)
	}
	return records, nil
}

// base builds the fields shared by all records of an evaluation.
func (r *Recorder) base(ev *Evaluation) (*evidence.Record, error) {
	canonical := value.Canonical(ev.Document)

	record := &evidence.Record{
		EvaluationID:        ev.EvaluationID,
		SchemaID:            ev.SchemaID,
		ContractVersion:     ev.ContractVersion,
		DocumentHash:        HashString(canonical),
		EvaluationTimestamp: ev.EvaluationTimestamp,
		TraceContext:        ev.TraceContext,
		RecordedAt:          r.clock().UTC(),
	}

	if r.config.StoreDocuments {
		if !json.Valid([]byte(canonical)) {
			return nil, evidence.NewRecorderError("", errInvalidDocument)
		}
		record.Document = json.RawMessage(canonical)
		if ev.Previous != nil && ev.Previous != value.Absent {
			record.Previous = json.RawMessage(value.Canonical(ev.Previous))
		}
	}
	return record, nil
}

func (r *Recorder) enqueue(ctx context.Context, record *evidence.Record) error {
	if r.recordChan == nil {
		return r.writeRecord(ctx, record)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		return nil
	case <-timer.C:
		r.logger.Error("evidence record channel full, dropping record",
			"record_id", record.ID,
			"evaluation_id", record.EvaluationID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		r.countWrite(context.DeadlineExceeded)
		return evidence.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		return evidence.NewRecorderError(record.ID, ctx.Err())
	case <-r.done:
		return evidence.NewRecorderError(record.ID, context.Canceled)
	}
}

// Close drains the queue and waits for pending writes. It does not close
// the storage.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Debug("evidence recorder shut down")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(context.Background(), record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(context.Background(), record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(ctx context.Context, record *evidence.Record) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := r.storage.Store(ctx, record)
	r.countWrite(err)
	if err != nil {
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"evaluation_id", record.EvaluationID,
			"constraint_id", record.ConstraintID,
			"error", err,
		)
		return evidence.NewRecorderError(record.ID, err)
	}

	duration := time.Since(start)
	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"constraint_id", record.ConstraintID,
		"result", record.Result,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
	return nil
}

func (r *Recorder) countWrite(err error) {
	if r.metrics != nil {
		r.metrics.RecordEvidenceStored(r.config.Backend, err)
	}
}
