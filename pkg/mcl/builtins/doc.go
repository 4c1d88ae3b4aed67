// Package builtins holds the closed registry of functions MCL expressions may
// call.
//
// The registry is a package-level table built once and never mutated. Its
// order is canonical (Names returns it) and entries are only ever appended,
// because builtin names are part of the expression grammar.
//
// Builtins fall into four categories:
//
//   - arithmetic: exact integer math over numbers, bigints and integer strings
//   - temporal: ISO-8601 comparisons and now(), the only clock-dependent call
//   - structural: len, type_of, key and uniqueness checks, snapshot diffs
//   - domain: single-call predicates over delegation chains, sagas,
//     governance proposals, checkpoints and audit trails
//
// Every builtin validates its own arguments. A value of the wrong shape is a
// type_coercion error; a well-shaped value that breaks the rule yields false.
package builtins
