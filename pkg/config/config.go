package config

import "time"

// Config is the root configuration structure for Covenant.
// It contains all configuration sections for the constraint engine,
// evidence storage and telemetry.
type Config struct {
	// Constraints configures where constraint files are loaded from and how
	// they are evaluated.
	Constraints ConstraintsConfig `yaml:"constraints"`

	// Evidence configures the recording of evaluation evidence.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ConstraintsConfig contains constraint loading and evaluation configuration.
type ConstraintsConfig struct {
	// Paths lists constraint files or directories. Directories are scanned
	// for .yaml, .yml and .json files.
	// Default: ["./constraints"]
	Paths []string `yaml:"paths"`

	// Watch enables reloading constraint files when they change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is how long to wait after a file change before reloading.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// CacheSize is the number of parsed expressions kept in memory.
	// Default: 1024
	CacheSize int `yaml:"cache_size"`

	// FailMode controls how evaluation errors affect a report.
	// Options: "closed" (an erroring error-severity constraint fails the
	// report), "open" (errors are reported but do not fail it)
	// Default: "closed"
	FailMode string `yaml:"fail_mode"`

	// TypeCheck runs the signature checker on every constraint that declares
	// a type_signature when files are loaded.
	// Default: false
	TypeCheck bool `yaml:"type_check"`

	// Timeout bounds the evaluation of one constraint file.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// Git loads constraint files from a Git repository instead of Paths.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a Git-backed constraint source. The source is used
// when Repository is set.
type GitConfig struct {
	// Repository URL (HTTPS, SSH or a local path).
	// Example: "https://github.com/company/contracts.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository holding constraint files.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "data/constraints-repo"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. 0 clones everything.
	// Default: 1
	Depth int `yaml:"depth"`

	// PollInterval is how often the branch is pulled while watching.
	// Default: 30s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Auth configures repository authentication.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh" or "none".
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication. Required when Type is "token".
	Token string `yaml:"token"`

	// SSHKeyPath is the private key file. Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted keys.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// EvidenceConfig contains evidence recording configuration.
type EvidenceConfig struct {
	// Enabled controls whether evaluations are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// StoreDocuments keeps the evaluated document in each record so that it
	// can be replayed. When false only the document hash is kept.
	// Default: true
	StoreDocuments *bool `yaml:"store_documents"`

	// AsyncBuffer is the size of the recorder's write queue. 0 writes
	// records synchronously.
	// Default: 1000
	AsyncBuffer *int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// KeepsDocuments reports whether documents are stored with records.
func (c *EvidenceConfig) KeepsDocuments() bool {
	return c.StoreDocuments == nil || *c.StoreDocuments
}

// SQLiteConfig contains SQLite backend configuration.
type SQLiteConfig struct {
	// Driver selects the database/sql driver.
	// Options: "sqlite" (modernc.org/sqlite, pure Go), "sqlite3"
	// (github.com/mattn/go-sqlite3, cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/evidence.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`
}

// RetentionConfig contains evidence retention configuration.
type RetentionConfig struct {
	// Days is the number of days to keep records. 0 keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a standard cron expression for pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the number of stored records. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchivePath, when set, is a directory where pruned records are
	// written as JSON before they are deleted.
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks sensitive attribute values (tokens, keys, secrets).
	// Default: true
	Redact *bool `yaml:"redact"`

	// RedactPatterns contains additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactsValues reports whether redaction is enabled.
func (c *LoggingConfig) RedactsValues() bool {
	return c.Redact == nil || *c.Redact
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress is where serve-metrics exposes the endpoint.
	// Default: ":9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "covenant"
	Namespace string `yaml:"namespace"`

	// EvaluationDurationBuckets defines histogram buckets (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5]
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
}

// IsEnabled reports whether metrics collection is active.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "covenant"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each component check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
