package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "COVENANT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention COVENANT_SECTION_FIELD (e.g., COVENANT_EVIDENCE_SQLITE_PATH).
// Environment variables always take precedence over file-based configuration.
//
// An empty path starts from the defaults instead of a file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)
	// Overrides can enable sections, such as the git source, whose
	// defaults were skipped.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Constraints overrides
	if val := getenv("CONSTRAINTS_PATHS"); val != "" {
		cfg.Constraints.Paths = splitList(val)
	}
	envBool("CONSTRAINTS_WATCH", &cfg.Constraints.Watch)
	envDuration("CONSTRAINTS_DEBOUNCE", &cfg.Constraints.Debounce)
	envInt("CONSTRAINTS_CACHE_SIZE", &cfg.Constraints.CacheSize)
	envString("CONSTRAINTS_FAIL_MODE", &cfg.Constraints.FailMode)
	envBool("CONSTRAINTS_TYPE_CHECK", &cfg.Constraints.TypeCheck)
	envDuration("CONSTRAINTS_TIMEOUT", &cfg.Constraints.Timeout)
	envString("CONSTRAINTS_GIT_REPOSITORY", &cfg.Constraints.Git.Repository)
	envString("CONSTRAINTS_GIT_BRANCH", &cfg.Constraints.Git.Branch)
	envString("CONSTRAINTS_GIT_PATH", &cfg.Constraints.Git.Path)
	envString("CONSTRAINTS_GIT_AUTH_TOKEN", &cfg.Constraints.Git.Auth.Token)

	// Evidence overrides
	envBool("EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	envString("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envBoolPtr("EVIDENCE_STORE_DOCUMENTS", &cfg.Evidence.StoreDocuments)
	if val := getenv("EVIDENCE_ASYNC_BUFFER"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Evidence.AsyncBuffer = &i
		}
	}
	envDuration("EVIDENCE_WRITE_TIMEOUT", &cfg.Evidence.WriteTimeout)
	envString("EVIDENCE_SQLITE_DRIVER", &cfg.Evidence.SQLite.Driver)
	envString("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envInt("EVIDENCE_SQLITE_MAX_OPEN_CONNS", &cfg.Evidence.SQLite.MaxOpenConns)
	envDuration("EVIDENCE_SQLITE_BUSY_TIMEOUT", &cfg.Evidence.SQLite.BusyTimeout)
	envBoolPtr("EVIDENCE_SQLITE_WAL_MODE", &cfg.Evidence.SQLite.WALMode)
	envInt("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	envString("EVIDENCE_RETENTION_PRUNE_SCHEDULE", &cfg.Evidence.Retention.PruneSchedule)
	envString("EVIDENCE_RETENTION_ARCHIVE_PATH", &cfg.Evidence.Retention.ArchivePath)
	if val := getenv("EVIDENCE_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Evidence.Retention.MaxRecords = i
		}
	}

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBoolPtr("TELEMETRY_LOGGING_REDACT", &cfg.Telemetry.Logging.Redact)
	envBoolPtr("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := getenv("TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	envBool("TELEMETRY_TRACING_OTLP_INSECURE", &cfg.Telemetry.Tracing.OTLP.Insecure)
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func envString(name string, dst *string) {
	if val := getenv(name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envBoolPtr(name string, dst **bool) {
	if val := getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = &b
		}
	}
}

func envInt(name string, dst *int) {
	if val := getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
