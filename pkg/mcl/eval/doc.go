// Package eval evaluates MCL syntax trees against JSON-like documents.
//
// Evaluation is synchronous and pure: it performs no I/O, holds no shared
// mutable state and may run concurrently on the same tree. The only input
// that can change a result between two calls is the wall clock behind now(),
// which a Context with EvaluationTimestamp freezes.
//
// # Basic Usage
//
//	node, _ := parser.Parse("bigint_sum([a, b]) == total")
//	doc, _ := value.DecodeJSON([]byte(`{"a": "3", "b": "4", "total": "7"}`))
//
//	ok, err := eval.Evaluate(doc, node, eval.Frozen("2026-01-01T00:00:00Z"))
//
// # Missing Fields
//
// A field that is not in the document evaluates to an absent value. Only the
// null checks (x == null, x != null) accept it; any other operator or builtin
// receiving it fails with a type_coercion error.
//
// # Errors
//
// Every failure is an *errors.Error of type parse, too_deep,
// unknown_identifier or type_coercion. Failures are never reported as false.
package eval
