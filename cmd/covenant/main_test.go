package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
)

// execute runs fn against a fresh command whose output is captured.
func execute(fn func(*cobra.Command, []string) error) (string, error) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := fn(cmd, nil)
	return out.String(), err
}

// useConfig points the commands at a config file with a SQLite evidence
// store under a temporary directory.
func useConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "covenant.yaml")
	content := `constraints:
  paths: [testdata/orders.yaml]
evidence:
  enabled: true
  backend: sqlite
  sqlite:
    path: ` + filepath.Join(dir, "evidence.db") + `
telemetry:
  logging:
    level: error
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
	return dir
}

func assertExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if got := cli.ExitCode(err); got != want {
		t.Errorf("Expected exit code %d, got %d (err: %v)", want, got, err)
	}
}

func assertViolation(t *testing.T, err error, subject string) *cli.ViolationError {
	t.Helper()
	var v *cli.ViolationError
	if !errors.As(err, &v) {
		t.Fatalf("Expected ViolationError, got %v", err)
	}
	if v.Subject != subject {
		t.Errorf("Expected subject %q, got %q", subject, v.Subject)
	}
	return v
}
