package config

import "time"

// Default configuration values.
const (
	// Constraints defaults
	DefaultConstraintsPath    = "./constraints"
	DefaultConstraintDebounce = 100 * time.Millisecond
	DefaultCacheSize          = 1024
	DefaultFailMode           = "closed"
	DefaultEvaluationTimeout  = 5 * time.Second
	DefaultGitBranch          = "main"
	DefaultGitLocalPath       = "data/constraints-repo"
	DefaultGitDepth           = 1
	DefaultGitPollInterval    = 30 * time.Second

	// Evidence defaults
	DefaultEvidenceBackend        = "sqlite"
	DefaultSQLiteDriver           = "sqlite"
	DefaultSQLitePath             = "data/evidence.db"
	DefaultSQLiteMaxOpenConns     = 4
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultRetentionDays          = 90
	DefaultRetentionPruneSchedule = "0 3 * * *"
	DefaultEvidenceAsyncBuffer    = 1000
	DefaultEvidenceWriteTimeout   = 5 * time.Second

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"

	// Metrics defaults
	DefaultMetricsListenAddress = ":9090"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "covenant"

	// Tracing defaults
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "covenant"
	DefaultOTLPTimeout        = 10 * time.Second

	// Health defaults
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// DefaultEvaluationDurationBuckets are the evaluation histogram buckets in
// seconds. Single expressions usually evaluate in microseconds.
var DefaultEvaluationDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Values that are
// already set are preserved.
func ApplyDefaults(cfg *Config) {
	// Constraints defaults
	if len(cfg.Constraints.Paths) == 0 {
		cfg.Constraints.Paths = []string{DefaultConstraintsPath}
	}
	if cfg.Constraints.Debounce == 0 {
		cfg.Constraints.Debounce = DefaultConstraintDebounce
	}
	if cfg.Constraints.CacheSize == 0 {
		cfg.Constraints.CacheSize = DefaultCacheSize
	}
	if cfg.Constraints.FailMode == "" {
		cfg.Constraints.FailMode = DefaultFailMode
	}
	if cfg.Constraints.Timeout == 0 {
		cfg.Constraints.Timeout = DefaultEvaluationTimeout
	}
	if git := &cfg.Constraints.Git; git.Repository != "" {
		if git.Branch == "" {
			git.Branch = DefaultGitBranch
		}
		if git.LocalPath == "" {
			git.LocalPath = DefaultGitLocalPath
		}
		if git.Depth == 0 {
			git.Depth = DefaultGitDepth
		}
		if git.PollInterval == 0 {
			git.PollInterval = DefaultGitPollInterval
		}
		if git.Auth.Type == "" {
			git.Auth.Type = "none"
		}
	}

	// Evidence defaults
	if cfg.Evidence.Backend == "" {
		cfg.Evidence.Backend = DefaultEvidenceBackend
	}
	if cfg.Evidence.StoreDocuments == nil {
		cfg.Evidence.StoreDocuments = boolPtr(true)
	}
	if cfg.Evidence.AsyncBuffer == nil {
		buf := DefaultEvidenceAsyncBuffer
		cfg.Evidence.AsyncBuffer = &buf
	}
	if cfg.Evidence.WriteTimeout == 0 {
		cfg.Evidence.WriteTimeout = DefaultEvidenceWriteTimeout
	}
	applySQLiteDefaults(&cfg.Evidence.SQLite)
	if cfg.Evidence.Retention.Days == 0 {
		cfg.Evidence.Retention.Days = DefaultRetentionDays
	}
	if cfg.Evidence.Retention.PruneSchedule == "" {
		cfg.Evidence.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applySQLiteDefaults(cfg *SQLiteConfig) {
	if cfg.Driver == "" {
		cfg.Driver = DefaultSQLiteDriver
	}
	if cfg.Path == "" {
		cfg.Path = DefaultSQLitePath
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.WALMode == nil {
		cfg.WALMode = boolPtr(true)
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.Redact == nil {
		cfg.Logging.Redact = boolPtr(true)
	}

	// Metrics
	if cfg.Metrics.Enabled == nil {
		cfg.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.EvaluationDurationBuckets) == 0 {
		cfg.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}

	// Tracing
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 && cfg.Tracing.Sampler == "ratio" {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	// Health
	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

func boolPtr(b bool) *bool {
	return &b
}
