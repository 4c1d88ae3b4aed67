// Package parser turns MCL expression text into an AST.
//
// The lexer produces identifiers, numbers, single-quoted strings and the
// operator set; the parser is a precedence-climbing recursive descent over
// those tokens.
//
// # Basic Usage
//
//	node, err := parser.Parse("amount > 0 && status == 'active'")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Precedence
//
// From lowest to highest:
//
//	=>                      implication, right-associative, desugared to !A || B
//	||                      logical or
//	&&                      logical and
//	== != < > <= >=         comparison, non-associative
//	! -                     unary not and numeric negation
//	. .length .every() ()   member access, quantifier, calls
//	literals ( ) [ ]        primaries
//
// x == null and x != null (in either operand order) parse to the dedicated
// null-check operators, which match both JSON null and a missing field.
//
// # Limits
//
// Every nested expression context (the top level, parenthesized groups,
// call arguments, array elements, every() predicates and unary operators)
// counts towards a depth limit of 32. Exceeding it returns an error of type
// too_deep before any further recursion happens.
//
// Function names are checked against the builtin registry while parsing:
// an unknown name is an unknown_identifier error and a wrong argument count
// is a parse error.
package parser
