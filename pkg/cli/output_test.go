package cli

import (
	"bytes"
	"encoding/json"
	"testing"
)

type builtinTable [][]string

func (b builtinTable) Header() []string { return []string{"name", "arity"} }
func (b builtinTable) Rows() [][]string { return b }

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  OutputFormat
		data    any
		want    string
		wantErr bool
	}{
		{"text", FormatText, "ok", "ok\n", false},
		{"unknown prints as text", "yaml", 42, "42\n", false},
		{"json", FormatJSON, map[string]int{"passed": 2}, "{\n  \"passed\": 2\n}\n", false},
		{"csv", FormatCSV, builtinTable{{"is_before", "2"}, {"sum", "1, 2"}}, "name,arity\nis_before,2\nsum,\"1, 2\"\n", false},
		{"csv needs a table", FormatCSV, "not a table", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			err := NewFormatter(tt.format).FormatTo(buf, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatTo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter_Struct(t *testing.T) {
	buf := &bytes.Buffer{}
	data := struct {
		ConstraintID string `json:"constraint_id"`
		Passed       bool   `json:"passed"`
	}{"steps.sum", true}

	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["constraint_id"] != "steps.sum" || got["passed"] != true {
		t.Errorf("unexpected JSON %v", got)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json", FormatText, FormatJSON); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %q, %v", f, err)
	}
	if _, err := ParseFormat("csv", FormatText, FormatJSON); err == nil {
		t.Error("ParseFormat(csv) expected error when csv is not allowed")
	}
}
