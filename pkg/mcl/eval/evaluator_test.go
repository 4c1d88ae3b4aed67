package eval

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/mcl/ast"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/parser"
	"mercator-hq/covenant/pkg/mcl/value"
)

func doc(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := value.DecodeJSON([]byte(src))
	if err != nil {
		t.Fatalf("DecodeJSON(%s) failed: %v", src, err)
	}
	return v
}

func run(t *testing.T, data, expr string, ctx *Context) (bool, error) {
	t.Helper()
	node, err := parser.Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", expr, err)
	}
	return Evaluate(doc(t, data), node, ctx)
}

func TestEvaluate_Scenarios(t *testing.T) {
	frozen := Frozen("2026-01-01T00:00:00Z")

	tests := []struct {
		name string
		data string
		expr string
		ctx  *Context
		want bool
	}{
		{"bigint sum of strings", `{"a": "3", "b": "4", "total": "7"}`, "bigint_sum([a, b]) == total", nil, true},
		{"ratified without timestamp", `{"status": "ratified", "ratified_at": null}`, "status != 'ratified' || ratified_at != null", nil, false},
		{"every with empty justification", `{"items": [{"justification": "x"}, {"justification": ""}]}`, "items.every(i => i.justification != '')", nil, false},
		{"frozen now", `{}`, "now() != null", frozen, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.data, tt.expr, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_TooDeep(t *testing.T) {
	expr := strings.Repeat("(", 40) + "true" + strings.Repeat(")", 40)
	_, err := parser.Parse(expr)
	if !errors.Is(err, mclErrors.ErrTooDeep) {
		t.Fatalf("Parse error = %v, want too_deep", err)
	}

	// Hand-built trees are guarded too.
	var node ast.Node = &ast.Identifier{Name: "ok"}
	for i := 0; i < 40; i++ {
		node = &ast.UnaryOp{Op: ast.OpNot, Operand: node}
	}
	if _, err := Evaluate(doc(t, `{"ok": true}`), node, nil); !errors.Is(err, mclErrors.ErrTooDeep) {
		t.Errorf("Evaluate error = %v, want too_deep", err)
	}
}

func TestEvaluate_NullEquivalence(t *testing.T) {
	for _, data := range []string{`{"field": null}`, `{}`} {
		got, err := run(t, data, "field == null", nil)
		if err != nil || !got {
			t.Errorf("field == null on %s = %v, %v; want true", data, got, err)
		}
		got, err = run(t, data, "null != field", nil)
		if err != nil || got {
			t.Errorf("null != field on %s = %v, %v; want false", data, got, err)
		}
	}

	got, err := run(t, `{"a": {"b": null}}`, "a.b.c.d == null", nil)
	if err != nil || !got {
		t.Errorf("deep missing path == null = %v, %v; want true", got, err)
	}
}

func TestEvaluate_Operators(t *testing.T) {
	data := `{
		"n": 5, "f": 2.5, "s": "abc", "t": true, "big": 18446744073709551617,
		"list": [1, 2, 3], "obj": {"k": [1, {"x": null}]}, "str_int": "18446744073709551617"
	}`

	tests := []struct {
		expr string
		want bool
	}{
		{"n > 4 && n <= 5", true},
		{"f < n", true},
		{"s >= 'abb'", true},
		{"s < 'b'", true},
		{"t == true", true},
		{"n == 5.0", true},
		{"n == '5'", false},
		{"n != '5'", true},
		{"big == str_int", true},
		{"big > n", true},
		{"big > 18446744073709551616", true},
		{"big >= str_int", true},
		{"-n < 0", true},
		{"-big < 0", true},
		{"list == [1, 2, 3]", true},
		{"list != [1, 2]", true},
		{"obj == obj", true},
		{"obj.k.length == 2", true},
		{"s.length == 3", true},
		{"list.length == len(list)", true},
		{"!(n > 5)", true},
		{"n > 10 => missing > 0", true},
		{"n > 1 => n < 10", true},
		{"n > 1 => n > 10", false},
		{"list.every(x => x > 0)", true},
		{"list.every(x => x > 1)", false},
		{"[].every(x => x.anything > 0)", true},
		{"obj.k.every(e => e != null)", true},
		{"list.every(x => list.every(y => x > 0 && y > 0))", true},
		{"obj.k.every(e => e == 1 || e.x == null)", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			node, err := parser.Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			got, err := Evaluate(doc(t, data), node, nil)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	// The right operand would be a type error if it were evaluated.
	tests := []struct {
		expr string
		want bool
	}{
		{"false && missing > 0", false},
		{"true || missing > 0", true},
		{"status != 'ratified' => bigint_gte(missing, 0)", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := run(t, `{"status": "draft"}`, tt.expr, nil)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		expr    string
		errType mclErrors.ErrorType
	}{
		{"absent in comparison", `{}`, "missing > 0", mclErrors.ErrorTypeTypeCoercion},
		{"absent in equality", `{}`, "missing == 'x'", mclErrors.ErrorTypeTypeCoercion},
		{"absent in builtin", `{}`, "bigint_gte(missing, 0)", mclErrors.ErrorTypeTypeCoercion},
		{"decimal string in bigint", `{"a": "1.5"}`, "bigint_sum([a]) == 1", mclErrors.ErrorTypeTypeCoercion},
		{"non-boolean result", `{"n": 1}`, "n", mclErrors.ErrorTypeTypeCoercion},
		{"non-boolean and", `{"n": 1}`, "n && true", mclErrors.ErrorTypeTypeCoercion},
		{"non-boolean not", `{"s": "x"}`, "!s", mclErrors.ErrorTypeTypeCoercion},
		{"ordering mixed kinds", `{"n": 1}`, "n < 'a'", mclErrors.ErrorTypeTypeCoercion},
		{"ordering booleans", `{}`, "true < false", mclErrors.ErrorTypeTypeCoercion},
		{"negate string", `{"s": "x"}`, "-s == 1", mclErrors.ErrorTypeTypeCoercion},
		{"every over object", `{"o": {}}`, "o.every(x => true)", mclErrors.ErrorTypeTypeCoercion},
		{"every non-boolean predicate", `{"l": [1]}`, "l.every(x => x)", mclErrors.ErrorTypeTypeCoercion},
		{"length of number", `{"n": 1}`, "n.length > 0", mclErrors.ErrorTypeTypeCoercion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.data, tt.expr, nil)
			if err == nil {
				t.Fatalf("Evaluate(%q) = %v, want %s error", tt.expr, got, tt.errType)
			}
			if kind := mclErrors.KindOf(err); kind != tt.errType {
				t.Errorf("error type = %q, want %q (%v)", kind, tt.errType, err)
			}
			if got {
				t.Error("failed evaluation returned true")
			}
		})
	}
}

func TestEvaluate_ErrorPosition(t *testing.T) {
	_, err := run(t, `{"a": "1.5"}`, "true && bigint_gte(a, 0)", nil)
	var e *mclErrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %T, want *errors.Error", err)
	}
	if e.Position.Column != 9 {
		t.Errorf("error column = %d, want 9 (the call)", e.Position.Column)
	}
}

func TestEvaluate_UnknownFunctionInHandBuiltTree(t *testing.T) {
	node := &ast.FunctionCall{Name: "does_not_exist"}
	_, err := Evaluate(value.Object{}, node, nil)
	if !errors.Is(err, mclErrors.ErrUnknownIdentifier) {
		t.Errorf("error = %v, want unknown_identifier", err)
	}
}

func TestEvaluate_Purity(t *testing.T) {
	node, err := parser.Parse("bigint_sum(items, 'amount') == total && items.every(i => i.amount != null)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data := doc(t, `{"items": [{"amount": "10"}, {"amount": 5}], "total": 15}`)
	before := value.Canonical(data)

	first, err1 := Evaluate(data, node, nil)
	second, err2 := Evaluate(data, node, nil)
	if first != second || err1 != nil || err2 != nil {
		t.Errorf("results differ: %v/%v, %v/%v", first, second, err1, err2)
	}
	if after := value.Canonical(data); after != before {
		t.Errorf("document mutated:\nbefore %s\nafter  %s", before, after)
	}
}

func TestEvaluate_FrozenNowIgnoresClock(t *testing.T) {
	node, err := parser.Parse("is_before(now(), '2026-06-01T00:00:00Z')")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	for _, wall := range []time.Time{time.Unix(0, 0), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)} {
		ctx := &Context{
			EvaluationTimestamp: "2026-01-01T00:00:00Z",
			Clock:               func() time.Time { return wall },
		}
		got, err := Evaluate(value.Object{}, node, ctx)
		if err != nil || !got {
			t.Errorf("wall clock %v: Evaluate = %v, %v; want true", wall, got, err)
		}
	}

	// Without a frozen timestamp the clock decides.
	late := &Context{Clock: func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }}
	if got, _ := Evaluate(value.Object{}, node, late); got {
		t.Error("clock override ignored")
	}
}

func TestEvaluate_PreviousSnapshot(t *testing.T) {
	ctx := &Context{Previous: doc(t, `{"supply": "1000"}`)}
	got, err := run(t, `{"supply": "1250"}`, "changed('supply') && bigint_eq(delta('supply'), 250)", ctx)
	if err != nil || !got {
		t.Errorf("snapshot expression = %v, %v; want true", got, err)
	}
}

func TestEvaluate_BigIntBeyond64Bits(t *testing.T) {
	// 2^64 + 2^64 == 2^65
	data := fmt.Sprintf(`{"a": "%s", "b": %s, "sum": "%s"}`, "18446744073709551616", "18446744073709551616", "36893488147419103232")
	got, err := run(t, data, "bigint_eq(bigint_add(a, b), sum) && bigint_sum([a, b]) == sum", nil)
	if err != nil || !got {
		t.Errorf("Evaluate = %v, %v; want true", got, err)
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	node, err := parser.Parse("items.every(i => bigint_gte(i.amount, 0))")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data := doc(t, `{"items": [{"amount": "1"}, {"amount": 2}, {"amount": "3"}]}`)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := Evaluate(data, node, nil)
			if err != nil || !ok {
				errs <- fmt.Errorf("Evaluate = %v, %v", ok, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
