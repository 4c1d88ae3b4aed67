// Package ast provides the Abstract Syntax Tree for the Mercator Constraint
// Language (MCL).
//
// The node set is closed: Literal, Identifier, MemberAccess, FunctionCall,
// BinaryOp, UnaryOp, ArrayLiteral and Every. Consumers switch exhaustively on
// the concrete type (or on Kind()); no other package can add node types.
//
// # Basic Usage
//
//	node, err := parser.Parse("status != 'ratified' || ratified_at != null")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ast.Walk(node, func(n ast.Node) (bool, error) {
//	    if call, ok := n.(*ast.FunctionCall); ok {
//	        fmt.Println("calls", call.Name)
//	    }
//	    return true, nil
//	})
//
// # Desugaring
//
// The parser rewrites A => B into !A || B, and x == null / x != null into
// the dedicated OpIsNull / OpNotNull operators, so the evaluator never sees
// implication or generic comparisons against the null literal.
//
// # Immutability
//
// Nodes are treated as immutable after construction. A tree is produced per
// parse and may be shared between concurrent evaluations.
package ast
