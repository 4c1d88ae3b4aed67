package validator

import (
	"strings"
	"testing"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
)

func sagaSignature() *ConstraintTypeSignature {
	return &ConstraintTypeSignature{
		InputSchema: "saga",
		OutputType:  TypeBoolean,
		FieldTypes: map[string]ConstraintType{
			"total_amount":     TypeBigIntCoercible,
			"steps":            TypeArray,
			"steps[].amount":   TypeBigIntCoercible,
			"steps[].sequence": TypeNumber,
			"steps[].items":    TypeArray,
			"status":           TypeString,
			"approved":         TypeBoolean,
			"created_at":       TypeString,
			"metadata":         TypeObject,
			"count":            TypeNumber,
			"cap":              TypeBigInt,
		},
	}
}

func TestSignatureChecker_Accepts(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"sum against total", "bigint_sum(steps, 'amount') == total_amount"},
		{"every over declared element field", "steps.every(s => s.sequence > 0)"},
		{"length and boolean", "steps.length > 0 && approved"},
		{"implication with temporal builtin", "status == 'active' => is_after(created_at, '2024-01-01')"},
		{"bigint literal argument", "bigint_gte(total_amount, 0)"},
		{"null check on object", "metadata != null"},
		{"undeclared element field is unknown", "steps.every(s => s.note == null)"},
		{"bigint orders against number", "cap > count"},
		{"integer string literal", "bigint_add(total_amount, '5') == cap"},
		{"previous keeps declared type", "previous('count') < count"},
		{"every over literal array", "[1, 2].every(x => x > 0)"},
		{"negation", "-count < 0"},
		{"nested every", "steps.every(s => s.items.every(i => i.ok))"},
		{"literal sum", "bigint_sum([total_amount, 1, '2']) == cap"},
		{"string field ordered against integer-like literal", "status < '5'"},
		{"integer-like literal ordered against string field", "'5' >= status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewSignatureChecker().Check(sagaSignature(), tt.expr); err != nil {
				t.Errorf("Check(%q) unexpected error: %v", tt.expr, err)
			}
		})
	}
}

func TestSignatureChecker_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		expr        string
		wantMessage string
	}{
		{"undeclared field", "totl_amount == '1'", `Field "totl_amount" is not declared`},
		{"number to bigint builtin", "bigint_add(count, 1) == cap", "bigint_add requires bigint or bigint_coercible"},
		{"number to temporal builtin", "is_after(count, created_at)", "is_after requires a timestamp string"},
		{"length of number", "count.length > 0", ".length requires an array or string"},
		{"every over number", "count.every(c => c > 0)", ".every requires an array"},
		{"non-boolean and", "approved && count", "Operator '&&' requires a boolean"},
		{"not of string", "!status", "Operator '!' requires a boolean"},
		{"string ordered against number", "status < count", "cannot order string against number"},
		{"integer strings ordered", "total_amount > '5'", "cannot order bigint_coercible against bigint_coercible"},
		{"boolean equals string", "approved == 'yes'", "never equal"},
		{"non-boolean result", "count", "Expression yields number, not boolean"},
		{"undeclared snapshot path", "changed('missing.path')", `Field "missing.path" is not declared`},
		{"fractional literal in sum", "bigint_sum([total_amount, 1.5]) == cap", "bigint_sum requires an integer"},
		{"declared element field misused", "steps.every(s => bigint_gte(s.sequence, 1))", "field 's.sequence' is number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSignatureChecker().Check(sagaSignature(), tt.expr)
			if err == nil {
				t.Fatalf("Check(%q) expected error", tt.expr)
			}

			errList, ok := err.(*mclErrors.ErrorList)
			if !ok {
				t.Fatalf("Expected ErrorList, got %T", err)
			}
			if !errList.HasErrorType(mclErrors.ErrorTypeSignature) {
				t.Errorf("Expected signature error, got: %v", errList.Errors)
			}
			if !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("Error %q does not contain %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestSignatureChecker_SuggestsField(t *testing.T) {
	err := NewSignatureChecker().Check(sagaSignature(), "approved && totl_amount == '1'")
	errList, ok := err.(*mclErrors.ErrorList)
	if !ok || errList.Count() != 1 {
		t.Fatalf("Expected one error, got %v", err)
	}

	e := errList.Errors[0]
	if e.Suggestion != "Did you mean 'total_amount'?" {
		t.Errorf("Suggestion = %q", e.Suggestion)
	}
	if e.Position.Offset != 12 {
		t.Errorf("Position offset = %d, want 12", e.Position.Offset)
	}
	if !strings.Contains(e.Context, "^") {
		t.Errorf("Context missing caret: %q", e.Context)
	}
}

func TestSignatureChecker_ReportsFieldOnce(t *testing.T) {
	err := NewSignatureChecker().Check(sagaSignature(), "foo > 1 && foo < 5")
	errList, ok := err.(*mclErrors.ErrorList)
	if !ok {
		t.Fatalf("Expected ErrorList, got %T", err)
	}
	if errList.Count() != 1 {
		t.Errorf("Count() = %d, want 1: %v", errList.Count(), errList.Errors)
	}
}

func TestSignatureChecker_Declarations(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(sig *ConstraintTypeSignature)
		wantMessage string
	}{
		{
			name:        "output type not boolean",
			mutate:      func(sig *ConstraintTypeSignature) { sig.OutputType = TypeNumber },
			wantMessage: `Output type "number" is not boolean`,
		},
		{
			name:        "reserved builtin name",
			mutate:      func(sig *ConstraintTypeSignature) { sig.FieldTypes["now"] = TypeString },
			wantMessage: `uses the reserved name "now"`,
		},
		{
			name:        "reserved keyword under array",
			mutate:      func(sig *ConstraintTypeSignature) { sig.FieldTypes["length[].x"] = TypeNumber },
			wantMessage: `uses the reserved name "length"`,
		},
		{
			name:        "unknown type name",
			mutate:      func(sig *ConstraintTypeSignature) { sig.FieldTypes["count"] = "integer" },
			wantMessage: `declares unknown type "integer"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := sagaSignature()
			tt.mutate(sig)

			err := NewSignatureChecker().Check(sig, "approved")
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("Error %q does not contain %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestSignatureChecker_ParseErrorPassesThrough(t *testing.T) {
	err := NewSignatureChecker().Check(sagaSignature(), "count >")
	if mclErrors.KindOf(err) != mclErrors.ErrorTypeParse {
		t.Errorf("KindOf() = %q, want parse (err: %v)", mclErrors.KindOf(err), err)
	}
}

func TestSignatureChecker_NilSignature(t *testing.T) {
	err := NewSignatureChecker().Check(nil, "approved")
	if mclErrors.KindOf(err) != mclErrors.ErrorTypeSignature {
		t.Errorf("KindOf() = %q, want signature", mclErrors.KindOf(err))
	}
}

func TestSignatureChecker_Reusable(t *testing.T) {
	checker := NewSignatureChecker()
	if err := checker.Check(sagaSignature(), "unknown_field"); err == nil {
		t.Fatal("Expected error on first check")
	}
	if err := checker.Check(sagaSignature(), "approved"); err != nil {
		t.Errorf("Errors leaked into second check: %v", err)
	}
}

func validFile() *FileSpec {
	return &FileSpec{
		SchemaID:          "saga",
		ContractVersion:   "1.0.0",
		ExpressionVersion: "1.0",
		Entries: []EntrySpec{
			{
				ID:         "amount-conserved",
				Expression: "bigint_sum(steps, 'amount') == total_amount",
				Severity:   "error",
				Fields:     []string{"steps", "total_amount"},
				Signature:  sagaSignature(),
			},
			{
				ID:         "approved",
				Expression: "approved",
				Severity:   "warning",
			},
		},
	}
}

func TestStructuralValidator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *FileSpec)
		wantErr bool
	}{
		{"valid file", func(f *FileSpec) {}, false},
		{"missing schema id", func(f *FileSpec) { f.SchemaID = "" }, true},
		{"missing contract version", func(f *FileSpec) { f.ContractVersion = "" }, true},
		{"invalid contract version", func(f *FileSpec) { f.ContractVersion = "v1" }, true},
		{"unsupported expression version", func(f *FileSpec) { f.ExpressionVersion = "2.0" }, true},
		{"no constraints", func(f *FileSpec) { f.Entries = nil }, true},
		{"missing id", func(f *FileSpec) { f.Entries[0].ID = "" }, true},
		{"uppercase id", func(f *FileSpec) { f.Entries[0].ID = "AmountConserved" }, true},
		{"duplicate id", func(f *FileSpec) { f.Entries[1].ID = f.Entries[0].ID }, true},
		{"empty expression", func(f *FileSpec) { f.Entries[0].Expression = "  " }, true},
		{"unknown severity", func(f *FileSpec) { f.Entries[0].Severity = "fatal" }, true},
		{"empty severity allowed", func(f *FileSpec) { f.Entries[0].Severity = "" }, false},
		{"reserved field", func(f *FileSpec) { f.Entries[0].Fields = []string{"every"} }, true},
		{"duplicate field", func(f *FileSpec) { f.Entries[0].Fields = []string{"steps", "steps"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFile()
			tt.mutate(f)

			err := NewStructuralValidator().Validate(f)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				errList, ok := err.(*mclErrors.ErrorList)
				if !ok {
					t.Fatalf("Expected ErrorList, got %T", err)
				}
				if !errList.HasErrorType(mclErrors.ErrorTypeStructural) {
					t.Errorf("Expected structural error, got errors: %v", errList.Errors)
				}
			}
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		if err := NewValidator().Validate(validFile()); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("expression errors are prefixed with the constraint id", func(t *testing.T) {
		f := validFile()
		f.Entries[0].Expression = "bigint_sum(steps, 'amount') == totl_amount"
		f.Entries[1].Expression = "approved &&"

		err := NewValidator().Validate(f)
		errList, ok := err.(*mclErrors.ErrorList)
		if !ok {
			t.Fatalf("Expected ErrorList, got %T", err)
		}
		if !errList.HasErrorType(mclErrors.ErrorTypeSignature) || !errList.HasErrorType(mclErrors.ErrorTypeParse) {
			t.Errorf("Expected signature and parse errors, got: %v", errList.Errors)
		}
		for _, e := range errList.Errors {
			if !strings.HasPrefix(e.Message, `Constraint "amount-conserved"`) && !strings.HasPrefix(e.Message, `Constraint "approved"`) {
				t.Errorf("Message not prefixed: %q", e.Message)
			}
		}
	})

	t.Run("structural errors skip expression checks", func(t *testing.T) {
		f := validFile()
		f.SchemaID = ""
		f.Entries[1].Expression = "approved &&"

		err := NewValidator().Validate(f)
		errList, ok := err.(*mclErrors.ErrorList)
		if !ok {
			t.Fatalf("Expected ErrorList, got %T", err)
		}
		if errList.HasErrorType(mclErrors.ErrorTypeParse) {
			t.Errorf("Parse errors reported despite structural errors: %v", errList.Errors)
		}
	})
}

func TestRootSegment(t *testing.T) {
	tests := map[string]string{
		"links":              "links",
		"links[].budget":     "links",
		"request.model.name": "request",
		"length[].x":         "length",
		"":                   "",
	}
	for in, want := range tests {
		if got := RootSegment(in); got != want {
			t.Errorf("RootSegment(%q) = %q, want %q", in, got, want)
		}
	}
}
