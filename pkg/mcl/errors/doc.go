// Package errors provides rich error types for MCL parsing, evaluation and
// static checking.
//
// Every error carries a category (ErrorType) so callers can always tell a
// malformed or ill-typed expression apart from a constraint that evaluated
// and was violated. Errors are never converted into a false result.
//
// # Error Types
//
// ErrorTypeParse: malformed expression syntax
//
// ErrorTypeTooDeep: nesting exceeds the depth limit (32)
//
// ErrorTypeUnknownIdentifier: call to a name outside the builtin registry
//
// ErrorTypeTypeCoercion: a value cannot be used by an operation (absent
// operand, decimal string passed to a bigint builtin, ...)
//
// ErrorTypeSignature: static type-signature mismatch found by the checker
//
// ErrorTypeStructural: constraint file schema violation
//
// ErrorTypeIO: file I/O errors
//
// # Basic Usage
//
// Test for a category with the standard library:
//
//	if errors.Is(err, mclErrors.ErrTypeCoercion) {
//	    // ...
//	}
//
// Or switch on the category:
//
//	switch mclErrors.KindOf(err) {
//	case mclErrors.ErrorTypeParse, mclErrors.ErrorTypeTooDeep:
//	    // reject the expression
//	}
//
// Accumulate multiple errors:
//
//	errList := mclErrors.NewErrorList()
//	errList.AddError(mclErrors.ErrorTypeSignature, "Field 'amount' is not declared", pos)
//	return errList.ToError()
//
// # Error Format
//
//	[parse] Unexpected token ')'
//	  --> column 6
//	  |
//	  | a && )
//	  |      ^
//	  = suggestion: Complete the right-hand side of '&&'
//
// # Suggestions
//
// The suggestion generator uses Levenshtein distance to suggest similar names
// when users make typos in field or builtin names:
//
//	suggestion := mclErrors.SuggestFunctionName("bigint_summ", builtins.Names())
//	// Returns: "Did you mean 'bigint_sum'?"
package errors
