package eval

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"mercator-hq/covenant/pkg/mcl/ast"
	"mercator-hq/covenant/pkg/mcl/builtins"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// MaxDepth is the nesting limit applied to every tree before evaluation.
// It matches the parser's limit, so a parsed tree is never rejected here.
const MaxDepth = 32

// Evaluate evaluates node against data and returns its boolean result.
// A non-boolean result is a type_coercion error. Errors are never folded
// into false.
func Evaluate(data value.Value, node ast.Node, ctx *Context) (bool, error) {
	result, err := EvaluateValue(data, node, ctx)
	if err != nil {
		return false, err
	}
	b, ok := result.(value.Bool)
	if !ok {
		return false, mclErrors.NewAt(mclErrors.ErrorTypeTypeCoercion, node.Pos(),
			"Expression must evaluate to a boolean, got %s", kindOf(result))
	}
	return bool(b), nil
}

// EvaluateValue evaluates node against data and returns the raw value.
func EvaluateValue(data value.Value, node ast.Node, ctx *Context) (value.Value, error) {
	if node == nil {
		return nil, mclErrors.New(mclErrors.ErrorTypeParse, "No expression to evaluate")
	}
	if depth := ast.NestingDepth(node); depth > MaxDepth {
		return nil, mclErrors.NewAt(mclErrors.ErrorTypeTooDeep, node.Pos(),
			"Expression nesting of %d exceeds the maximum depth of %d", depth, MaxDepth)
	}
	if data == nil {
		data = value.Absent
	}

	ev := &evaluator{root: data, call: ctx.builtinCall(data)}
	return ev.eval(node)
}

// binding is one every() parameter in scope.
type binding struct {
	name string
	val  value.Value
}

// evaluator holds the state of a single evaluation. It is never shared.
type evaluator struct {
	root  value.Value
	call  *builtins.Call
	scope []binding // innermost last
}

func (ev *evaluator) eval(node ast.Node) (value.Value, error) {
	switch n := node.(type) {
	case *ast.Literal:
		if n.Value == nil {
			return value.Absent, nil
		}
		return n.Value, nil

	case *ast.Identifier:
		return ev.lookup(n.Name), nil

	case *ast.MemberAccess:
		return ev.evalMember(n)

	case *ast.FunctionCall:
		return ev.evalCall(n)

	case *ast.BinaryOp:
		return ev.evalBinary(n)

	case *ast.UnaryOp:
		return ev.evalUnary(n)

	case *ast.ArrayLiteral:
		out := make(value.Array, len(n.Elements))
		for i, el := range n.Elements {
			v, err := ev.eval(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *ast.Every:
		return ev.evalEvery(n)
	}

	return nil, mclErrors.New(mclErrors.ErrorTypeParse, "Unsupported node %T", node)
}

// lookup resolves a name: innermost every() binding, then a root field.
func (ev *evaluator) lookup(name string) value.Value {
	for i := len(ev.scope) - 1; i >= 0; i-- {
		if ev.scope[i].name == name {
			return ev.scope[i].val
		}
	}
	if obj, ok := ev.root.(value.Object); ok {
		return obj.Field(name)
	}
	return value.Absent
}

func (ev *evaluator) evalMember(n *ast.MemberAccess) (value.Value, error) {
	obj, err := ev.eval(n.Object)
	if err != nil {
		return nil, err
	}

	switch v := obj.(type) {
	case value.Object:
		return v.Field(n.Property), nil
	case value.Array:
		if n.Property == "length" {
			return value.Number(len(v)), nil
		}
	case value.String:
		if n.Property == "length" {
			return value.Number(utf8.RuneCountInString(string(v))), nil
		}
	}
	return value.Absent, nil
}

func (ev *evaluator) evalCall(n *ast.FunctionCall) (value.Value, error) {
	b, ok := builtins.Lookup(n.Name)
	if !ok {
		return nil, &mclErrors.Error{
			Type:       mclErrors.ErrorTypeUnknownIdentifier,
			Message:    fmt.Sprintf("Unknown function '%s'", n.Name),
			Position:   n.Position,
			Suggestion: mclErrors.SuggestFunctionName(n.Name, builtins.Names()),
		}
	}

	args := make([]value.Value, len(n.Args))
	for i, arg := range n.Args {
		v, err := ev.eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	result, err := b.Invoke(ev.call, args)
	if err != nil {
		return nil, at(err, n.Position)
	}
	return result, nil
}

func (ev *evaluator) evalBinary(n *ast.BinaryOp) (value.Value, error) {
	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		return ev.evalLogical(n)
	case ast.OpIsNull, ast.OpNotNull:
		v, err := ev.eval(n.Left)
		if err != nil {
			return nil, err
		}
		isNull := value.IsNullish(v)
		return value.Bool(isNull == (n.Op == ast.OpIsNull)), nil
	}

	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	if left.Kind() == value.KindAbsent || right.Kind() == value.KindAbsent {
		return nil, &mclErrors.Error{
			Type:       mclErrors.ErrorTypeTypeCoercion,
			Message:    fmt.Sprintf("Operator '%s' cannot be applied to an undefined value", n.Op),
			Position:   n.Position,
			Suggestion: "Guard missing fields with '!= null' or an implication",
		}
	}

	switch n.Op {
	case ast.OpEqual:
		return value.Bool(equal(left, right)), nil
	case ast.OpNotEqual:
		return value.Bool(!equal(left, right)), nil
	case ast.OpLessThan, ast.OpGreaterThan, ast.OpLessEqual, ast.OpGreaterEqual:
		c, err := compare(left, right)
		if err != nil {
			return nil, at(err, n.Position)
		}
		return value.Bool(ordered(n.Op, c)), nil
	}

	return nil, mclErrors.NewAt(mclErrors.ErrorTypeParse, n.Position, "Unknown binary operator '%s'", n.Op)
}

// evalLogical short-circuits && and ||. Both operands must be booleans.
func (ev *evaluator) evalLogical(n *ast.BinaryOp) (value.Value, error) {
	left, err := ev.evalBool(n.Left, n.Op)
	if err != nil {
		return nil, err
	}
	if n.Op == ast.OpAnd && !left {
		return value.Bool(false), nil
	}
	if n.Op == ast.OpOr && left {
		return value.Bool(true), nil
	}

	right, err := ev.evalBool(n.Right, n.Op)
	if err != nil {
		return nil, err
	}
	return value.Bool(right), nil
}

func (ev *evaluator) evalBool(node ast.Node, op ast.Operator) (bool, error) {
	v, err := ev.eval(node)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Bool)
	if !ok {
		return false, mclErrors.NewAt(mclErrors.ErrorTypeTypeCoercion, node.Pos(),
			"Operator '%s' requires a boolean operand, got %s", op, kindOf(v))
	}
	return bool(b), nil
}

func (ev *evaluator) evalUnary(n *ast.UnaryOp) (value.Value, error) {
	if n.Op == ast.OpNot {
		b, err := ev.evalBool(n.Operand, n.Op)
		if err != nil {
			return nil, err
		}
		return value.Bool(!b), nil
	}

	v, err := ev.eval(n.Operand)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case value.Number:
		return -x, nil
	case value.BigInt:
		return value.NewBigInt(new(big.Int).Neg(x.Int())), nil
	}
	return nil, mclErrors.NewAt(mclErrors.ErrorTypeTypeCoercion, n.Position,
		"Operator '%s' requires a number, got %s", n.Op, kindOf(v))
}

// evalEvery binds each element in turn and stops at the first false.
func (ev *evaluator) evalEvery(n *ast.Every) (value.Value, error) {
	target, err := ev.eval(n.Array)
	if err != nil {
		return nil, err
	}
	arr, ok := target.(value.Array)
	if !ok {
		return nil, mclErrors.NewAt(mclErrors.ErrorTypeTypeCoercion, n.Position,
			"every() requires an array, got %s", kindOf(target))
	}

	for _, el := range arr {
		ev.scope = append(ev.scope, binding{name: n.Param, val: el})
		ok, err := ev.evalBool(n.Predicate, "every")
		ev.scope = ev.scope[:len(ev.scope)-1]
		if err != nil {
			return nil, err
		}
		if !ok {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

// at stamps a position on an MCL error that has none.
func at(err error, pos ast.Position) error {
	if e, ok := err.(*mclErrors.Error); ok && !e.Position.IsValid() {
		e.Position = pos
	}
	return err
}

func kindOf(v value.Value) value.Kind {
	if v == nil {
		return value.KindAbsent
	}
	return v.Kind()
}
