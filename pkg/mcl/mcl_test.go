package mcl

import (
	"strings"
	"sync"
	"testing"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/validator"
	"mercator-hq/covenant/pkg/mcl/value"
)

// TestEvaluate tests the high-level API with every accepted data form
func TestEvaluate(t *testing.T) {
	type step struct {
		Amount string `json:"amount"`
	}
	type saga struct {
		Steps []step `json:"steps"`
		Total string `json:"total_amount"`
	}

	const expr = "bigint_sum(steps, 'amount') == total_amount"

	tests := []struct {
		name string
		data any
	}{
		{"raw json", []byte(`{"steps": [{"amount": "40"}, {"amount": "60"}], "total_amount": "100"}`)},
		{"generic map", map[string]interface{}{
			"steps":        []interface{}{map[string]interface{}{"amount": "40"}, map[string]interface{}{"amount": "60"}},
			"total_amount": "100",
		}},
		{"struct", saga{Steps: []step{{"40"}, {"60"}}, Total: "100"}},
		{"value", value.Object{
			"steps":        value.Array{value.Object{"amount": value.String("40")}, value.Object{"amount": value.String("60")}},
			"total_amount": value.String("100"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Evaluate(tt.data, expr, nil)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if !ok {
				t.Error("Evaluate() = false, want true")
			}
		})
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	frozen := eval.Frozen("2026-01-01T00:00:00Z")

	tests := []struct {
		name string
		data string
		expr string
		want bool
	}{
		{"bigint sum", `{"a": "3", "b": "4", "total": "7"}`, "bigint_sum([a, b]) == total", true},
		{"state guard", `{"status": "ratified", "ratified_at": null}`, "status != 'ratified' || ratified_at != null", false},
		{"every", `{"items": [{"justification": "x"}, {"justification": ""}]}`, "items.every(i => i.justification != '')", false},
		{"frozen now", `{}`, "now() == '2026-01-01T00:00:00Z'", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateJSON([]byte(tt.data), tt.expr, frozen)
			if err != nil {
				t.Fatalf("EvaluateJSON() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvaluateJSON(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_TooDeep(t *testing.T) {
	expr := strings.Repeat("(", 33) + "true" + strings.Repeat(")", 33)
	_, err := Evaluate(map[string]interface{}{}, expr, nil)
	if mclErrors.KindOf(err) != mclErrors.ErrorTypeTooDeep {
		t.Errorf("KindOf() = %q, want too_deep (err: %v)", mclErrors.KindOf(err), err)
	}
}

func TestEvaluate_ErrorCarriesContext(t *testing.T) {
	_, err := EvaluateJSON([]byte(`{"a": 1}`), "a && true", nil)
	if err == nil {
		t.Fatal("Expected error")
	}

	var e *mclErrors.Error
	if !asError(err, &e) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if e.Type != mclErrors.ErrorTypeTypeCoercion {
		t.Errorf("Type = %q, want type_coercion", e.Type)
	}
	if !strings.Contains(e.Context, "a && true") {
		t.Errorf("Context = %q, want the expression", e.Context)
	}
}

func TestEvaluateJSON_InvalidDocument(t *testing.T) {
	_, err := EvaluateJSON([]byte(`{"a": `), "a == 1", nil)
	if mclErrors.KindOf(err) != mclErrors.ErrorTypeTypeCoercion {
		t.Errorf("KindOf() = %q, want type_coercion", mclErrors.KindOf(err))
	}
}

func TestEvaluateJSON_BigIntegers(t *testing.T) {
	data := []byte(`{"supply": 123456789012345678901234567890, "reserves": "123456789012345678901234567891"}`)
	ok, err := EvaluateJSON(data, "bigint_gt(reserves, supply) && supply < reserves", nil)
	if err != nil {
		t.Fatalf("EvaluateJSON() failed: %v", err)
	}
	if !ok {
		t.Error("Expected exact comparison beyond float64 precision")
	}
}

func TestCheck(t *testing.T) {
	sig := &validator.ConstraintTypeSignature{
		InputSchema: "ledger",
		OutputType:  validator.TypeBoolean,
		FieldTypes: map[string]validator.ConstraintType{
			"reserves": validator.TypeBigIntCoercible,
			"supply":   validator.TypeBigIntCoercible,
		},
	}

	if err := Check(sig, "bigint_gte(reserves, supply)"); err != nil {
		t.Errorf("Check() unexpected error: %v", err)
	}
	if err := Check(sig, "reserves >= supply"); mclErrors.KindOf(err) != mclErrors.ErrorTypeSignature {
		t.Errorf("Check() = %v, want signature error", err)
	}
}

func TestCompiler_Caches(t *testing.T) {
	c := NewCompiler(2)

	first, err := c.Compile("a == 1")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	second, err := c.Compile("a == 1")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if first != second {
		t.Error("Expected the cached program on the second compile")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 entry", stats)
	}
}

func TestCompiler_Evicts(t *testing.T) {
	c := NewCompiler(2)
	for _, expr := range []string{"a == 1", "a == 2", "a == 3"} {
		if _, err := c.Compile(expr); err != nil {
			t.Fatalf("Compile(%q) failed: %v", expr, err)
		}
	}
	if got := c.Stats().Entries; got != 2 {
		t.Errorf("Entries = %d, want 2", got)
	}

	c.Purge()
	if got := c.Stats().Entries; got != 0 {
		t.Errorf("Entries after Purge = %d, want 0", got)
	}
}

func TestCompiler_DoesNotCacheFailures(t *testing.T) {
	c := NewCompiler(0)
	if _, err := c.Compile("a =="); err == nil {
		t.Fatal("Expected parse error")
	}
	if got := c.Stats().Entries; got != 0 {
		t.Errorf("Entries = %d, want 0", got)
	}
}

func TestCompiler_Concurrent(t *testing.T) {
	c := NewCompiler(4)
	doc := value.Object{"n": value.Number(3)}
	exprs := []string{"n > 1", "n < 5", "n == 3", "n != 4", "n >= 3", "n <= 3"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			expr := exprs[i%len(exprs)]
			ok, err := c.Evaluate(doc, expr, nil)
			if err != nil || !ok {
				t.Errorf("Evaluate(%q) = %v, %v", expr, ok, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestProgram_ErrorCarriesContext(t *testing.T) {
	prog, err := NewCompiler(1).Compile("missing > 1")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	_, err = prog.Evaluate(value.Object{}, nil)

	var e *mclErrors.Error
	if !asError(err, &e) || e.Expression != "missing > 1" {
		t.Errorf("Expected error with expression context, got %v", err)
	}
}

func asError(err error, target **mclErrors.Error) bool {
	e, ok := err.(*mclErrors.Error)
	if ok {
		*target = e
	}
	return ok
}
