package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/export"
	"mercator-hq/covenant/pkg/telemetry/metrics"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain evidence.
	// 0 means keep evidence forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchivePath, when set, receives a JSON export of every batch of
	// records before it is deleted.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// ConfigFrom converts the retention section of the evidence config.
func ConfigFrom(cfg *config.RetentionConfig) *Config {
	return &Config{
		RetentionDays: cfg.Days,
		PruneSchedule: cfg.PruneSchedule,
		ArchivePath:   cfg.ArchivePath,
		MaxRecords:    cfg.MaxRecords,
	}
}

// Option customizes a Pruner.
type Option func(*Pruner)

// WithMetrics counts pruned records on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(p *Pruner) { p.metrics = collector }
}

// WithClock overrides the clock used to compute the age cutoff.
func WithClock(clock func() time.Time) Option {
	return func(p *Pruner) { p.clock = clock }
}

// Pruner enforces retention policies on evidence records.
type Pruner struct {
	storage   evidence.Storage
	config    *Config
	logger    *slog.Logger
	metrics   *metrics.Collector
	clock     func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(storage evidence.Storage, cfg *Config, logger *slog.Logger, opts ...Option) *Pruner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "evidence.retention"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		totalDeleted += deleted
		if err != nil {
			p.count(totalDeleted)
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		p.logger.Debug("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		totalDeleted += deleted
		if err != nil {
			p.count(totalDeleted)
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		p.logger.Debug("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	p.count(totalDeleted)
	if totalDeleted > 0 {
		p.logger.Info("evidence pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) count(deleted int64) {
	if p.metrics != nil {
		p.metrics.RecordEvidencePruned(deleted)
	}
}

// Cutoff returns the time before which records are expired, or the zero
// time when age-based retention is off.
func (p *Pruner) Cutoff() time.Time {
	if p.config.RetentionDays <= 0 {
		return time.Time{}
	}
	return p.clock().UTC().AddDate(0, 0, -p.config.RetentionDays)
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.Cutoff()
	query := &evidence.Query{EndTime: &cutoff}

	if p.config.ArchivePath != "" {
		records, err := p.storage.Query(ctx, &evidence.Query{EndTime: &cutoff, SortOrder: "asc"})
		if err != nil {
			return 0, evidence.NewRetentionError(p.config.RetentionDays, err)
		}
		if err := p.archive(ctx, "age", records); err != nil {
			return 0, evidence.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, evidence.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

// pruneByCount deletes the oldest records so that at most MaxRecords
// remain. Records sharing the boundary timestamp are deleted together.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &evidence.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	oldest, err := p.storage.Query(ctx, &evidence.Query{SortOrder: "asc", Limit: int(toDelete)})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if p.config.ArchivePath != "" {
		if err := p.archive(ctx, "count", oldest); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	cutoff := oldest[len(oldest)-1].RecordedAt
	deleted, err := p.storage.Delete(ctx, &evidence.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// archive writes records as a JSON array under ArchivePath.
func (p *Pruner) archive(ctx context.Context, reason string, records []*evidence.Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("evidence-%s-%s.json", reason, p.clock().UTC().Format("2006-01-02-150405.000"))
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("evidence records archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
