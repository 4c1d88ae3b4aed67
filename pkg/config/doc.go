// Package config provides configuration management for Covenant.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("covenant.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("covenant.yaml")
//
// Passing an empty path to LoadConfigWithEnvOverrides starts from the
// defaults, which is what the CLI does when no --config flag is given.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention COVENANT_SECTION_FIELD:
//
//   - COVENANT_CONSTRAINTS_PATHS overrides constraints.paths (comma-separated)
//   - COVENANT_EVIDENCE_SQLITE_DRIVER overrides evidence.sqlite.driver
//   - COVENANT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - COVENANT_CONSTRAINTS_GIT_REPOSITORY switches to a Git constraint source
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example
//
//	constraints:
//	  paths: ["./constraints"]
//	  watch: true
//	  fail_mode: closed
//	  git:
//	    repository: https://github.com/acme/contracts.git
//	    branch: main
//	    path: constraints/
//	    poll_interval: 1m
//	evidence:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    driver: sqlite
//	    path: data/evidence.db
//	  retention:
//	    days: 30
//	    prune_schedule: "0 3 * * *"
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
