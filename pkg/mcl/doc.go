// Package mcl provides parsing, evaluation and static checking for the
// Mercator Constraint Language (MCL).
//
// MCL is a small declarative expression language for machine-checkable
// invariants over JSON-like records: conservation laws, state guards,
// temporal predicates and structural well-formedness rules. An expression
// evaluates deterministically to true or false, or fails with a categorized
// error. Failures are never reported as false.
//
// # Architecture
//
// The package is organized into subpackages:
//
// - ast: closed syntax tree node types, positions and traversal
// - value: closed value model and JSON decoding with exact big integers
// - parser: tokenizer and precedence-climbing parser with a depth limit
// - builtins: the closed, ordered registry of builtin functions
// - eval: the evaluator and its per-call Context
// - validator: static type-signature checker and constraint file checks
// - errors: categorized errors with caret context and suggestions
//
// # Basic Usage
//
// Evaluate an expression against a document:
//
//	ok, err := mcl.EvaluateJSON(
//	    []byte(`{"steps": [{"amount": "40"}, {"amount": "60"}], "total_amount": "100"}`),
//	    "bigint_sum(steps, 'amount') == total_amount",
//	    eval.Frozen("2026-01-01T00:00:00Z"),
//	)
//
// Parse once and evaluate many times:
//
//	compiler := mcl.NewCompiler(mcl.DefaultCacheSize)
//	prog, err := compiler.Compile("links.every(l => l.budget != null)")
//	ok, err := prog.Evaluate(doc, nil)
//
// # Expression Syntax
//
//	a => b                   implication, lowest precedence, right-associative
//	a || b, a && b           boolean, short-circuit
//	a == b, a != b, a < b    comparison, non-associative
//	!a, -a                   unary
//	a.b, a.length            member access
//	items.every(i => p)      universal quantifier
//	bigint_sum([a, b])       builtin call
//	'text', 42, true, null   literals
//	[a, b, c]                array literal
//
// # Determinism
//
// Evaluation performs no I/O. The only input besides the document is the
// clock behind now(); replays freeze it with eval.Frozen so that a past
// decision evaluates identically later.
//
// # Error Handling
//
// Errors carry the expression with a caret under the offending column:
//
//	[unknown_identifier] Unknown function 'bigint_summ'
//	  --> column 1
//	  |
//	  | bigint_summ([a, b]) == total
//	  | ^
//	  = suggestion: Did you mean 'bigint_sum'?
package mcl
