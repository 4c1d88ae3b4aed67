package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitViolated = 1
	ExitError    = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ViolationError reports that evaluation completed and the verdict was
// negative: an expression evaluated to false, a report was invalid or a
// replay did not reproduce. It maps to exit code 1, unlike operational
// errors.
type ViolationError struct {
	Subject string
	Failed  int
}

func (e *ViolationError) Error() string {
	if e.Failed > 0 {
		return fmt.Sprintf("%s: %d failed", e.Subject, e.Failed)
	}
	return e.Subject + ": failed"
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// NewViolationError creates a new ViolationError.
func NewViolationError(subject string, failed int) *ViolationError {
	return &ViolationError{Subject: subject, Failed: failed}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var violation *ViolationError
	if errors.As(err, &violation) {
		return ExitViolated
	}
	return ExitError
}
