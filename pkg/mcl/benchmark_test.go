package mcl

import (
	"testing"

	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/value"
)

const benchExpr = "status == 'active' => (bigint_sum(steps, 'amount') == total_amount && steps.every(s => s.amount != null))"

var benchDoc = []byte(`{
  "status": "active",
  "total_amount": "600",
  "steps": [{"amount": "100"}, {"amount": "200"}, {"amount": "300"}]
}`)

// BenchmarkParse benchmarks expression parsing
func BenchmarkParse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Parse(benchExpr); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEvaluateJSON benchmarks decode + parse + evaluate
func BenchmarkEvaluateJSON(b *testing.B) {
	ctx := eval.Frozen("2026-01-01T00:00:00Z")
	for i := 0; i < b.N; i++ {
		if _, err := EvaluateJSON(benchDoc, benchExpr, ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompilerEvaluate benchmarks evaluation of a cached program
func BenchmarkCompilerEvaluate(b *testing.B) {
	doc, err := value.DecodeJSON(benchDoc)
	if err != nil {
		b.Fatal(err)
	}
	c := NewCompiler(DefaultCacheSize)
	ctx := eval.Frozen("2026-01-01T00:00:00Z")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Evaluate(doc, benchExpr, ctx); err != nil {
			b.Fatal(err)
		}
	}
}
