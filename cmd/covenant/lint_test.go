package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func setLintFlags(file, dir string) {
	lintFlags.file = file
	lintFlags.dir = dir
	lintFlags.strict = false
	lintFlags.format = "text"
}

func TestLintConstraints(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		dir     string
		wantErr bool
	}{
		{"valid file", "testdata/orders.yaml", "", false},
		{"unsigned file", "testdata/unsigned.yaml", "", false},
		{"undeclared field is not a lint error", "testdata/invalid/undeclared-field.yaml", "", false},
		{"syntax error", "testdata/invalid/bad-syntax.yaml", "", true},
		{"directory with a bad file", "", "testdata/invalid", true},
		{"nonexistent file", "testdata/nonexistent.yaml", "", true},
		{"example files", "", "../../examples/constraints", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setLintFlags(tt.file, tt.dir)
			_, err := execute(lintConstraints)
			if (err != nil) != tt.wantErr {
				t.Errorf("lintConstraints() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckConstraints(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		strict  bool
		wantErr bool
	}{
		{"valid file", "testdata/orders.yaml", false, false},
		{"undeclared field", "testdata/invalid/undeclared-field.yaml", false, true},
		{"unsigned file", "testdata/unsigned.yaml", false, false},
		{"unsigned file strict", "testdata/unsigned.yaml", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setLintFlags(tt.file, "")
			lintFlags.strict = tt.strict
			_, err := execute(checkConstraints)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkConstraints() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLintConstraints_NoFileOrDir(t *testing.T) {
	setLintFlags("", "")
	if _, err := execute(lintConstraints); err == nil {
		t.Error("Expected error without --file or --dir")
	}
}

func TestLintConstraints_TextOutput(t *testing.T) {
	setLintFlags("testdata/invalid/bad-syntax.yaml", "")
	out, _ := execute(lintConstraints)

	for _, want := range []string{"Validating", "✗ Error:", "order.broken", "[parse]", "Summary:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestCheckConstraints_JSONOutput(t *testing.T) {
	setLintFlags("", "testdata/invalid")
	lintFlags.format = "json"

	out, err := execute(checkConstraints)
	if err == nil {
		t.Fatal("Expected error for invalid directory")
	}

	var results []ValidationResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	types := map[string]string{}
	for _, r := range results {
		if r.Valid || len(r.Errors) == 0 {
			t.Errorf("Expected %s to be invalid", r.File)
			continue
		}
		types[r.SchemaID] = r.Errors[0].Type
	}
	if types["bad-syntax"] != "parse" {
		t.Errorf("Expected parse error for bad-syntax, got %q", types["bad-syntax"])
	}
	if types["undeclared"] != "signature" {
		t.Errorf("Expected signature error for undeclared, got %q", types["undeclared"])
	}
}
