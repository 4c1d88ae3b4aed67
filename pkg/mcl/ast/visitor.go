package ast

// Visitor is called for each node during Walk. Returning false skips the
// node's children; returning an error stops the traversal.
type Visitor func(n Node) (bool, error)

// Walk traverses the tree in depth-first order starting at n and calls the
// visitor for each node. It returns the first error encountered, or nil if
// traversal completes.
func Walk(n Node, visit Visitor) error {
	if n == nil {
		return nil
	}

	descend, err := visit(n)
	if err != nil || !descend {
		return err
	}

	for _, child := range Children(n) {
		if err := Walk(child, visit); err != nil {
			return err
		}
	}

	return nil
}

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *MemberAccess:
		return []Node{v.Object}
	case *FunctionCall:
		return v.Args
	case *BinaryOp:
		return []Node{v.Left, v.Right}
	case *UnaryOp:
		return []Node{v.Operand}
	case *ArrayLiteral:
		return v.Elements
	case *Every:
		return []Node{v.Array, v.Predicate}
	default:
		return nil
	}
}

// NestingDepth returns the number of nested expression contexts in the tree,
// counting the root, every call argument, array element, every() predicate
// and unary operand. Binary operators and member access do not add nesting,
// matching how the parser counts depth (parenthesized groups disappear from
// the tree, so a parsed tree never reports more than the parser saw).
func NestingDepth(n Node) int {
	if n == nil {
		return 0
	}
	return 1 + innerDepth(n)
}

func innerDepth(n Node) int {
	deepest := 0
	switch v := n.(type) {
	case *MemberAccess:
		deepest = innerDepth(v.Object)
	case *BinaryOp:
		deepest = max(innerDepth(v.Left), innerDepth(v.Right))
	case *FunctionCall:
		for _, arg := range v.Args {
			deepest = max(deepest, NestingDepth(arg))
		}
	case *ArrayLiteral:
		for _, el := range v.Elements {
			deepest = max(deepest, NestingDepth(el))
		}
	case *UnaryOp:
		deepest = NestingDepth(v.Operand)
	case *Every:
		deepest = max(innerDepth(v.Array), NestingDepth(v.Predicate))
	}
	return deepest
}
