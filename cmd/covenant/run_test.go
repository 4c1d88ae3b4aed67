package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/constraint/engine"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/query"
)

func setRunFlags(file, data string) {
	runFlags.file = file
	runFlags.dir = ""
	runFlags.schema = ""
	runFlags.data = data
	runFlags.at = "2026-03-01T12:00:00Z"
	runFlags.previous = ""
	runFlags.format = "text"
	runFlags.record = false
}

func TestRunConstraints(t *testing.T) {
	useConfig(t)

	t.Run("valid document", func(t *testing.T) {
		setRunFlags("testdata/orders.yaml", "testdata/order.json")
		out, err := execute(runConstraints)
		if err != nil {
			t.Fatalf("runConstraints() error = %v", err)
		}
		for _, want := range []string{"orders (contract 1.0.0)", "✓ order.total-positive", "VALID: 2 passed"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("violations", func(t *testing.T) {
		setRunFlags("testdata/orders.yaml", "testdata/order-empty.json")
		out, err := execute(runConstraints)
		assertExitCode(t, err, cli.ExitViolated)
		if v := assertViolation(t, err, "orders"); v.Failed != 2 {
			t.Errorf("Expected 2 failed constraints, got %d", v.Failed)
		}
		if !strings.Contains(out, "✗ order.total-positive [error]: Order total must be positive") {
			t.Errorf("Expected violation message in output:\n%s", out)
		}
	})

	t.Run("warning only", func(t *testing.T) {
		dir := t.TempDir()
		doc := filepath.Join(dir, "doc.json")
		if err := os.WriteFile(doc, []byte(`{"order": {"total": "5", "status": "pending"}}`), 0o644); err != nil {
			t.Fatal(err)
		}
		setRunFlags("testdata/orders.yaml", doc)
		if _, err := execute(runConstraints); err != nil {
			t.Errorf("Expected a warning not to fail the run, got %v", err)
		}
	})

	t.Run("json", func(t *testing.T) {
		setRunFlags("testdata/orders.yaml", "testdata/order.json")
		runFlags.format = "json"
		out, err := execute(runConstraints)
		if err != nil {
			t.Fatalf("runConstraints() error = %v", err)
		}

		var reports []*engine.Report
		if err := json.Unmarshal([]byte(out), &reports); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if len(reports) != 1 || reports[0].EvaluationTimestamp != "2026-03-01T12:00:00.000Z" {
			t.Errorf("Unexpected reports: %s", out)
		}
	})

	t.Run("schema selection", func(t *testing.T) {
		setRunFlags("", "testdata/order.json")
		runFlags.dir = "../../examples/constraints"
		runFlags.schema = "payment-saga"
		runFlags.data = "../../examples/documents/saga.json"
		out, err := execute(runConstraints)
		if err != nil {
			t.Fatalf("runConstraints() error = %v", err)
		}
		if strings.Contains(out, "delegation-chain") {
			t.Errorf("Expected only payment-saga to run:\n%s", out)
		}
	})

	t.Run("unknown schema", func(t *testing.T) {
		setRunFlags("testdata/orders.yaml", "testdata/order.json")
		runFlags.schema = "missing"
		if _, err := execute(runConstraints); err == nil {
			t.Error("Expected error for unknown schema")
		}
	})

	t.Run("invalid constraint file", func(t *testing.T) {
		setRunFlags("testdata/invalid/bad-syntax.yaml", "testdata/order.json")
		_, err := execute(runConstraints)
		assertExitCode(t, err, cli.ExitError)
	})
}

func TestRunRecordReplay(t *testing.T) {
	dir := useConfig(t)

	setRunFlags("testdata/orders.yaml", "testdata/order-empty.json")
	runFlags.record = true
	if _, err := execute(runConstraints); cli.ExitCode(err) != cli.ExitViolated {
		t.Fatalf("Expected violations, got %v", err)
	}
	setRunFlags("testdata/orders.yaml", "testdata/order.json")
	runFlags.record = true
	if _, err := execute(runConstraints); err != nil {
		t.Fatalf("runConstraints() error = %v", err)
	}

	t.Run("query", func(t *testing.T) {
		evidenceQueryFlags = queryFlags{limit: query.DefaultLimit, order: "desc", result: "violated"}
		evidenceFlags.queryFormat = "json"
		out, err := execute(queryEvidence)
		if err != nil {
			t.Fatalf("queryEvidence() error = %v", err)
		}

		var res struct {
			Total   int64              `json:"total_records"`
			Records []*evidence.Record `json:"records"`
		}
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if res.Total != 2 || len(res.Records) != 2 {
			t.Fatalf("Expected 2 violated records, got %d", res.Total)
		}
		for _, r := range res.Records {
			if r.EvaluationTimestamp != "2026-03-01T12:00:00.000Z" || !r.Replayable() {
				t.Errorf("Unexpected record %+v", r)
			}
		}
	})

	t.Run("query text", func(t *testing.T) {
		evidenceQueryFlags = queryFlags{limit: 1, order: "asc", schema: "orders"}
		evidenceFlags.queryFormat = "text"
		out, err := execute(queryEvidence)
		if err != nil {
			t.Fatalf("queryEvidence() error = %v", err)
		}
		if !strings.Contains(out, "Matching records: 4 (showing 1)") || !strings.Contains(out, "--offset") {
			t.Errorf("Unexpected output:\n%s", out)
		}
	})

	t.Run("replay", func(t *testing.T) {
		replayQueryFlags = queryFlags{limit: query.MaxLimit, order: "asc"}
		replayFlags.format = "text"
		out, err := execute(replayEvidence)
		if err != nil {
			t.Fatalf("replayEvidence() error = %v\n%s", err, out)
		}
		if !strings.Contains(out, "4 matched, 0 mismatched, 0 skipped") {
			t.Errorf("Unexpected output:\n%s", out)
		}
	})

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(dir, "export.csv")
		evidenceExportFlags = queryFlags{limit: query.MaxLimit, order: "asc"}
		evidenceFlags.exportFormat = "csv"
		evidenceFlags.output = path
		t.Cleanup(func() { evidenceFlags.output = "" })

		if _, err := execute(exportEvidence); err != nil {
			t.Fatalf("exportEvidence() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 5 || !strings.HasPrefix(lines[0], "id,evaluation_id") {
			t.Errorf("Expected header and 4 rows, got:\n%s", data)
		}
	})

	t.Run("prune", func(t *testing.T) {
		evidenceFlags.dryRun = true
		out, err := execute(pruneEvidence)
		evidenceFlags.dryRun = false
		if err != nil {
			t.Fatalf("pruneEvidence() error = %v", err)
		}
		if !strings.Contains(out, "Would prune 0 record(s)") {
			t.Errorf("Unexpected output: %s", out)
		}

		out, err = execute(pruneEvidence)
		if err != nil {
			t.Fatalf("pruneEvidence() error = %v", err)
		}
		if !strings.Contains(out, "Pruned 0 record(s)") {
			t.Errorf("Unexpected output: %s", out)
		}
	})
}

func TestQueryFlags_Build(t *testing.T) {
	tests := []struct {
		name    string
		flags   queryFlags
		wantErr bool
	}{
		{"defaults", queryFlags{}, false},
		{"relative since", queryFlags{since: "7d"}, false},
		{"bad since", queryFlags{since: "last week"}, true},
		{"bad result", queryFlags{result: "maybe"}, true},
		{"bad order", queryFlags{order: "sideways"}, true},
		{"until before since", queryFlags{since: "2026-03-02", until: "2026-03-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.flags.build(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
			if (err != nil) != tt.wantErr {
				t.Fatalf("build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && q.Limit != query.DefaultLimit && tt.flags.limit == 0 {
				t.Errorf("Expected default limit, got %d", q.Limit)
			}
		})
	}
}
