//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const ordersYAML = `schema_id: orders
contract_version: 1.0.0
constraints:
  - id: order.total-positive
    expression: bigint_gt(order.total, 0)
    severity: error
    message: Order total must be positive
`

var (
	buildOnce  sync.Once
	binaryPath string
	buildErr   error
)

// TestServeMetricsStartStop starts serve-metrics, waits for readiness,
// triggers a reload and shuts down with SIGINT.
func TestServeMetricsStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tmpDir := t.TempDir()
	constraintsDir := filepath.Join(tmpDir, "constraints")
	writeFile(t, filepath.Join(constraintsDir, "orders.yaml"), ordersYAML)
	configFile := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, configFile, `
constraints:
  paths: ["`+constraintsDir+`"]
  watch: true
  debounce: 50ms
evidence:
  enabled: false
telemetry:
  logging:
    level: "info"
    format: "json"
  metrics:
    listen_address: "127.0.0.1:18090"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, covenantBinary(t), "serve-metrics", "--config", configFile)
	cmd.Dir = tmpDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start serve-metrics: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	if !waitForStatus("http://127.0.0.1:18090/ready", http.StatusOK, 10*time.Second) {
		t.Fatalf("server never became ready\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	// A broken file fails the reload but the previous set stays ready.
	writeFile(t, filepath.Join(constraintsDir, "broken.yaml"), "schema_id: [")
	if !waitForBody("http://127.0.0.1:18090/metrics", `covenant_constraint_reloads_total{result="failure"} 1`, 5*time.Second) {
		t.Errorf("reload failure was not counted\nStderr: %s", stderr.String())
	}
	if !waitForStatus("http://127.0.0.1:18090/ready", http.StatusOK, time.Second) {
		t.Error("expected the server to stay ready after a failed reload")
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("failed to send SIGINT: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v\nStderr: %s", err, stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Error("server did not shut down within 10 seconds")
	}
}

// TestRecordReplayPipeline records evidence with run and verifies it with
// replay and evidence query.
func TestRecordReplayPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	tmpDir := t.TempDir()
	constraintsFile := filepath.Join(tmpDir, "orders.yaml")
	writeFile(t, constraintsFile, ordersYAML)
	good := filepath.Join(tmpDir, "good.json")
	writeFile(t, good, `{"order": {"total": "12"}}`)
	bad := filepath.Join(tmpDir, "bad.json")
	writeFile(t, bad, `{"order": {"total": "-3"}}`)

	t.Setenv("COVENANT_EVIDENCE_BACKEND", "sqlite")
	t.Setenv("COVENANT_EVIDENCE_SQLITE_PATH", filepath.Join(tmpDir, "evidence.db"))

	runCovenant(t, 0, "run", "--file", constraintsFile, "--data", good, "--record")
	runCovenant(t, 1, "run", "--file", constraintsFile, "--data", bad, "--record")

	out := runCovenant(t, 0, "replay", "--schema", "orders")
	if !strings.Contains(out, "2 matched, 0 mismatched") {
		t.Errorf("unexpected replay output:\n%s", out)
	}

	out = runCovenant(t, 0, "evidence", "query", "--result", "violated", "--format", "json")
	var res struct {
		Total int `json:"total_records"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if res.Total != 1 {
		t.Errorf("expected 1 violated record, got %d", res.Total)
	}
}

func TestExitCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	doc := filepath.Join(t.TempDir(), "doc.json")
	writeFile(t, doc, `{"a": 1}`)

	tests := []struct {
		expr string
		want int
	}{
		{"a == 1", 0},
		{"a == 2", 1},
		{"a >", 2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			runCovenant(t, tt.want, "eval", "--expr", tt.expr, "--data", doc)
		})
	}
}

func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	out := runCovenant(t, 0, "version")
	if !strings.Contains(out, "Covenant") {
		t.Errorf("version output should contain 'Covenant', got: %s", out)
	}
}

// runCovenant runs the binary and checks its exit code.
func runCovenant(t *testing.T, wantCode int, args ...string) string {
	t.Helper()
	cmd := exec.Command(covenantBinary(t), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("covenant %v: %v", args, err)
	}
	if code != wantCode {
		t.Fatalf("covenant %v: exit code %d, want %d\nStdout: %s\nStderr: %s",
			args, code, wantCode, stdout.String(), stderr.String())
	}
	return stdout.String()
}

func covenantBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "covenant-bin")
		if err != nil {
			buildErr = err
			return
		}
		binaryPath = filepath.Join(dir, "covenant")
		output, err := exec.Command("go", "build", "-o", binaryPath, "../cmd/covenant").CombinedOutput()
		if err != nil {
			buildErr = errors.New(string(output))
		}
	})
	if buildErr != nil {
		t.Fatalf("failed to build covenant: %v", buildErr)
	}
	return binaryPath
}

func waitForStatus(url string, status int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == status {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func waitForBody(url, want string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if strings.Contains(string(body), want) {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
