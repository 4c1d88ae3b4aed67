package ast

import "mercator-hq/covenant/pkg/mcl/value"

// Kind identifies one of the closed set of MCL node shapes.
type Kind string

const (
	KindLiteral      Kind = "literal"       // 'text', 42, true, null
	KindIdentifier   Kind = "identifier"    // status
	KindMemberAccess Kind = "member_access" // a.b
	KindFunctionCall Kind = "function_call" // bigint_sum([a, b])
	KindBinaryOp     Kind = "binary_op"     // a == b
	KindUnaryOp      Kind = "unary_op"      // !a
	KindArrayLiteral Kind = "array_literal" // [a, b]
	KindEvery        Kind = "every"         // items.every(i => pred)
)

// Operator represents a binary or unary operator in MCL expressions.
type Operator string

const (
	OpOr           Operator = "||"
	OpAnd          Operator = "&&"
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessThan     Operator = "<"
	OpGreaterThan  Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="

	// Null checks match both JSON null and an absent field.
	OpIsNull  Operator = "== null"
	OpNotNull Operator = "!= null"

	OpNot    Operator = "!"
	OpNegate Operator = "-"
)

// IsComparison returns true for the equality, ordering and null-check operators.
func (o Operator) IsComparison() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLessThan, OpGreaterThan, OpLessEqual, OpGreaterEqual, OpIsNull, OpNotNull:
		return true
	}
	return false
}

// IsLogical returns true for && and ||.
func (o Operator) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

// IsOrdering returns true for <, >, <= and >=.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpLessThan, OpGreaterThan, OpLessEqual, OpGreaterEqual:
		return true
	}
	return false
}

// Node is an MCL expression node. The set of implementations is closed:
// only the types in this file satisfy it.
type Node interface {
	Kind() Kind
	Pos() Position
	node()
}

// Literal is a constant value written in the expression.
type Literal struct {
	Value    value.Value
	Position Position
}

// Identifier references a root data field or a bound every() parameter.
type Identifier struct {
	Name     string
	Position Position
}

// MemberAccess is a dotted property access. The reserved property "length"
// yields the size of an array or string.
type MemberAccess struct {
	Object   Node
	Property string
	Position Position
}

// FunctionCall invokes a builtin from the closed registry.
type FunctionCall struct {
	Name     string
	Args     []Node
	Position Position
}

// BinaryOp combines two operands with an operator.
type BinaryOp struct {
	Op       Operator
	Left     Node
	Right    Node
	Position Position
}

// UnaryOp applies ! or - to a single operand.
type UnaryOp struct {
	Op       Operator
	Operand  Node
	Position Position
}

// ArrayLiteral is a bracketed list of expressions.
type ArrayLiteral struct {
	Elements []Node
	Position Position
}

// Every is the universal quantifier array.every(param => predicate).
type Every struct {
	Array     Node
	Param     string
	Predicate Node
	Position  Position
}

func (n *Literal) Kind() Kind      { return KindLiteral }
func (n *Identifier) Kind() Kind   { return KindIdentifier }
func (n *MemberAccess) Kind() Kind { return KindMemberAccess }
func (n *FunctionCall) Kind() Kind { return KindFunctionCall }
func (n *BinaryOp) Kind() Kind     { return KindBinaryOp }
func (n *UnaryOp) Kind() Kind      { return KindUnaryOp }
func (n *ArrayLiteral) Kind() Kind { return KindArrayLiteral }
func (n *Every) Kind() Kind        { return KindEvery }

func (n *Literal) Pos() Position      { return n.Position }
func (n *Identifier) Pos() Position   { return n.Position }
func (n *MemberAccess) Pos() Position { return n.Position }
func (n *FunctionCall) Pos() Position { return n.Position }
func (n *BinaryOp) Pos() Position     { return n.Position }
func (n *UnaryOp) Pos() Position      { return n.Position }
func (n *ArrayLiteral) Pos() Position { return n.Position }
func (n *Every) Pos() Position        { return n.Position }

func (*Literal) node()      {}
func (*Identifier) node()   {}
func (*MemberAccess) node() {}
func (*FunctionCall) node() {}
func (*BinaryOp) node()     {}
func (*UnaryOp) node()      {}
func (*ArrayLiteral) node() {}
func (*Every) node()        {}

// IsNullLiteral returns true if n is the literal null.
func IsNullLiteral(n Node) bool {
	lit, ok := n.(*Literal)
	return ok && lit.Value.Kind() == value.KindNull
}

// FieldPath returns the dotted path of an identifier/member-access chain
// (e.g. "a.b.c") and the root identifier. It returns ok=false when the chain
// is rooted in anything other than an identifier.
func FieldPath(n Node) (path string, root string, ok bool) {
	switch v := n.(type) {
	case *Identifier:
		return v.Name, v.Name, true
	case *MemberAccess:
		parent, root, ok := FieldPath(v.Object)
		if !ok {
			return "", "", false
		}
		return parent + "." + v.Property, root, true
	default:
		return "", "", false
	}
}
