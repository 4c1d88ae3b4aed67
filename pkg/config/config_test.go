package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "covenant.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(*testing.T, *Config)
	}{
		{
			name:  "empty config gets all defaults",
			input: Config{},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Constraints.Paths) != 1 || cfg.Constraints.Paths[0] != DefaultConstraintsPath {
					t.Errorf("expected paths [%q], got %v", DefaultConstraintsPath, cfg.Constraints.Paths)
				}
				if cfg.Constraints.Debounce != DefaultConstraintDebounce {
					t.Errorf("expected debounce %v, got %v", DefaultConstraintDebounce, cfg.Constraints.Debounce)
				}
				if cfg.Constraints.FailMode != DefaultFailMode {
					t.Errorf("expected fail mode %q, got %q", DefaultFailMode, cfg.Constraints.FailMode)
				}
				if cfg.Evidence.SQLite.Driver != DefaultSQLiteDriver {
					t.Errorf("expected driver %q, got %q", DefaultSQLiteDriver, cfg.Evidence.SQLite.Driver)
				}
				if !cfg.Evidence.KeepsDocuments() {
					t.Error("expected documents to be kept by default")
				}
				if cfg.Evidence.SQLite.WALMode == nil || !*cfg.Evidence.SQLite.WALMode {
					t.Error("expected WAL mode by default")
				}
				if cfg.Evidence.Retention.Days != DefaultRetentionDays {
					t.Errorf("expected retention days %d, got %d", DefaultRetentionDays, cfg.Evidence.Retention.Days)
				}
				if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
					t.Errorf("expected logging level %q, got %q", DefaultLoggingLevel, cfg.Telemetry.Logging.Level)
				}
				if !cfg.Telemetry.Metrics.IsEnabled() {
					t.Error("expected metrics enabled by default")
				}
				if cfg.Telemetry.Tracing.SampleRatio != DefaultTracingSampleRatio {
					t.Errorf("expected sample ratio %v, got %v", DefaultTracingSampleRatio, cfg.Telemetry.Tracing.SampleRatio)
				}
			},
		},
		{
			name: "existing values are preserved",
			input: Config{
				Constraints: ConstraintsConfig{Paths: []string{"a.yaml"}, FailMode: "open", CacheSize: 8},
				Evidence:    EvidenceConfig{Backend: "memory", StoreDocuments: boolPtr(false)},
				Telemetry: TelemetryConfig{
					Logging: LoggingConfig{Level: "debug", Redact: boolPtr(false)},
					Metrics: MetricsConfig{Enabled: boolPtr(false)},
				},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Constraints.Paths[0] != "a.yaml" || cfg.Constraints.FailMode != "open" || cfg.Constraints.CacheSize != 8 {
					t.Errorf("constraints overwritten: %+v", cfg.Constraints)
				}
				if cfg.Evidence.Backend != "memory" || cfg.Evidence.KeepsDocuments() {
					t.Errorf("evidence overwritten: %+v", cfg.Evidence)
				}
				if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.RedactsValues() {
					t.Errorf("logging overwritten: %+v", cfg.Telemetry.Logging)
				}
				if cfg.Telemetry.Metrics.IsEnabled() {
					t.Error("expected metrics to stay disabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			ApplyDefaults(&cfg)
			tt.check(t, &cfg)
		})
	}
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(NewDefaultConfig()); err != nil {
		t.Errorf("default configuration should be valid: %v", err)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
constraints:
  paths: ["./contracts", "./extra.yaml"]
  watch: true
  debounce: "250ms"
  fail_mode: open

evidence:
  enabled: true
  backend: sqlite
  sqlite:
    driver: sqlite3
    path: "./test-evidence.db"
  retention:
    days: 30

telemetry:
  logging:
    level: debug
    format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Constraints.Paths) != 2 {
		t.Errorf("expected 2 constraint paths, got %v", cfg.Constraints.Paths)
	}
	if !cfg.Constraints.Watch {
		t.Error("expected watch enabled")
	}
	if cfg.Constraints.Debounce != 250*time.Millisecond {
		t.Errorf("expected debounce 250ms, got %v", cfg.Constraints.Debounce)
	}
	if cfg.Evidence.SQLite.Driver != "sqlite3" {
		t.Errorf("expected driver sqlite3, got %q", cfg.Evidence.SQLite.Driver)
	}
	if cfg.Evidence.Retention.Days != 30 {
		t.Errorf("expected retention 30, got %d", cfg.Evidence.Retention.Days)
	}
	if cfg.Evidence.SQLite.BusyTimeout != DefaultSQLiteBusyTimeout {
		t.Errorf("expected default busy timeout, got %v", cfg.Evidence.SQLite.BusyTimeout)
	}
	if cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "constraints: [", "failed to parse"},
		{"invalid fail mode", "constraints:\n  fail_mode: maybe\n", "constraints.fail_mode"},
		{"invalid driver", "evidence:\n  enabled: true\n  sqlite:\n    driver: postgres\n", "evidence.sqlite.driver"},
		{"invalid backend", "evidence:\n  enabled: true\n  backend: s3\n", "evidence.backend"},
		{"invalid schedule", "evidence:\n  enabled: true\n  retention:\n    prune_schedule: \"every day\"\n", "evidence.retention.prune_schedule"},
		{"invalid level", "telemetry:\n  logging:\n    level: verbose\n", "telemetry.logging.level"},
		{"invalid sampler", "telemetry:\n  tracing:\n    enabled: true\n    sampler: sometimes\n", "telemetry.tracing.sampler"},
		{"invalid git auth", "constraints:\n  git:\n    repository: https://example.com/c.git\n    auth:\n      type: kerberos\n", "constraints.git.auth.type"},
		{"git token missing", "constraints:\n  git:\n    repository: https://example.com/c.git\n    auth:\n      type: token\n", "constraints.git.auth.token"},
		{"git poll too fast", "constraints:\n  git:\n    repository: https://example.com/c.git\n    poll_interval: 10ms\n", "constraints.git.poll_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Constraints.FailMode = "sideways"
	cfg.Constraints.CacheSize = -1
	cfg.Telemetry.Logging.Format = "xml"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "with 3 errors") {
		t.Errorf("unexpected message: %s", verr.Error())
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "telemetry:\n  logging:\n    level: info\n")

	t.Setenv("COVENANT_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("COVENANT_CONSTRAINTS_PATHS", "a.yaml, b.yaml,,")
	t.Setenv("COVENANT_CONSTRAINTS_DEBOUNCE", "1s")
	t.Setenv("COVENANT_EVIDENCE_ENABLED", "true")
	t.Setenv("COVENANT_EVIDENCE_BACKEND", "memory")
	t.Setenv("COVENANT_EVIDENCE_STORE_DOCUMENTS", "false")
	t.Setenv("COVENANT_EVIDENCE_RETENTION_MAX_RECORDS", "500")
	t.Setenv("COVENANT_CONSTRAINTS_CACHE_SIZE", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %q", cfg.Telemetry.Logging.Level)
	}
	if got := strings.Join(cfg.Constraints.Paths, "|"); got != "a.yaml|b.yaml" {
		t.Errorf("expected paths a.yaml|b.yaml, got %q", got)
	}
	if cfg.Constraints.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Constraints.Debounce)
	}
	if !cfg.Evidence.Enabled || cfg.Evidence.Backend != "memory" || cfg.Evidence.KeepsDocuments() {
		t.Errorf("evidence overrides not applied: %+v", cfg.Evidence)
	}
	if cfg.Evidence.Retention.MaxRecords != 500 {
		t.Errorf("expected max records 500, got %d", cfg.Evidence.Retention.MaxRecords)
	}
	if cfg.Constraints.CacheSize != DefaultCacheSize {
		t.Errorf("unparseable override should be ignored, got %d", cfg.Constraints.CacheSize)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("COVENANT_CONSTRAINTS_FAIL_MODE", "open")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Constraints.FailMode != "open" {
		t.Errorf("expected fail mode open, got %q", cfg.Constraints.FailMode)
	}
}

func TestLoadConfigWithEnvOverrides_GitRepository(t *testing.T) {
	t.Setenv("COVENANT_CONSTRAINTS_GIT_REPOSITORY", "https://example.com/contracts.git")
	t.Setenv("COVENANT_CONSTRAINTS_GIT_PATH", "schemas")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	git := cfg.Constraints.Git
	if git.Branch != DefaultGitBranch || git.LocalPath != DefaultGitLocalPath {
		t.Errorf("git defaults not applied after override: %+v", git)
	}
	if git.Path != "schemas" || git.Auth.Type != "none" {
		t.Errorf("unexpected git config: %+v", git)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("COVENANT_CONSTRAINTS_FAIL_MODE", "maybe")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil || !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("expected override validation error, got %v", err)
	}
}
