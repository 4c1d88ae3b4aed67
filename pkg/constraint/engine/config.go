package engine

import (
	"fmt"
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/mcl"
)

// FailMode determines how evaluation errors affect a report.
type FailMode string

const (
	// FailClosed makes an erroring error-severity constraint fail the
	// report, exactly like a violation. This is the default.
	FailClosed FailMode = "closed"

	// FailOpen reports errors without failing the report. Violations
	// still fail it.
	FailOpen FailMode = "open"
)

// Config contains configuration for the constraint engine.
type Config struct {
	// FailMode determines how to handle evaluation errors.
	// Default: FailClosed.
	FailMode FailMode

	// TypeCheck makes Prepare check every expression against its declared
	// type signature.
	// Default: false.
	TypeCheck bool

	// CacheSize is the number of parsed expressions kept.
	// Default: mcl.DefaultCacheSize.
	CacheSize int

	// Timeout bounds the evaluation of one file. Constraints not reached in
	// time are reported as errors. Zero disables the bound.
	// Default: 5s.
	Timeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		FailMode:  FailClosed,
		CacheSize: mcl.DefaultCacheSize,
		Timeout:   5 * time.Second,
	}
}

// ConfigFrom converts the constraints section of the configuration.
func ConfigFrom(cfg *config.ConstraintsConfig) *Config {
	c := DefaultConfig()
	if cfg.FailMode != "" {
		c.FailMode = FailMode(cfg.FailMode)
	}
	c.TypeCheck = cfg.TypeCheck
	if cfg.CacheSize > 0 {
		c.CacheSize = cfg.CacheSize
	}
	c.Timeout = cfg.Timeout
	return c
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	switch c.FailMode {
	case FailClosed, FailOpen:
	default:
		return fmt.Errorf("invalid fail mode %q: must be %q or %q", c.FailMode, FailClosed, FailOpen)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must be non-negative, got %d", c.CacheSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	return nil
}
