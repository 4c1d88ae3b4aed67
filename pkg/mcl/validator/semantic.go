package validator

import (
	"fmt"
	"strings"

	"mercator-hq/covenant/pkg/mcl/ast"
	"mercator-hq/covenant/pkg/mcl/builtins"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/parser"
	"mercator-hq/covenant/pkg/mcl/value"
)

// SignatureChecker statically checks an expression against a declared type
// signature without evaluating it. It is conservative: an expression that
// would evaluate fine may still be rejected when the declared types do not
// prove it safe.
//
// A SignatureChecker is not safe for concurrent use.
type SignatureChecker struct {
	sig      *ConstraintTypeSignature
	scope    []boundParam
	reported map[string]bool
	errors   *mclErrors.ErrorList
}

// boundParam is an every() parameter. path is the declared array it ranges
// over, or "" when the array is not a declared field.
type boundParam struct {
	name string
	path string
}

// NewSignatureChecker creates a new signature checker.
func NewSignatureChecker() *SignatureChecker {
	return &SignatureChecker{
		errors: mclErrors.NewErrorList(),
	}
}

// Check parses expr and checks it against sig. Parse failures are returned
// as they are; type problems come back as an *errors.ErrorList of signature
// errors.
func (c *SignatureChecker) Check(sig *ConstraintTypeSignature, expr string) error {
	node, err := parser.Parse(expr)
	if err != nil {
		return err
	}
	return c.CheckNode(sig, expr, node)
}

// CheckNode checks an already parsed expression. expr is only used to
// render error context.
func (c *SignatureChecker) CheckNode(sig *ConstraintTypeSignature, expr string, node ast.Node) error {
	c.sig = sig
	c.scope = nil
	c.reported = make(map[string]bool)
	c.errors = mclErrors.NewErrorList()

	if sig == nil {
		c.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeSignature,
			"No type signature declared",
			ast.Position{},
			mclErrors.SuggestMissingField("type_signature", "{output_type: boolean, field_types: {...}}"),
		)
		return c.errors.ToError()
	}

	c.checkDeclarations()

	if sig.OutputType != TypeBoolean {
		c.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeSignature,
			fmt.Sprintf("Output type %q is not boolean", sig.OutputType),
			ast.Position{},
			mclErrors.SuggestMissingField("output_type", "boolean"),
		)
	}

	if t := c.infer(node); !accepts(t, TypeBoolean) {
		c.fail(node.Pos(), "Expression yields %s, not boolean", t)
	}

	for _, e := range c.errors.Errors {
		mclErrors.WithContext(e, expr)
	}
	return c.errors.ToError()
}

// checkDeclarations rejects unknown type names and field names that collide
// with the reserved namespace.
func (c *SignatureChecker) checkDeclarations() {
	for _, path := range c.sig.Paths() {
		t := c.sig.FieldTypes[path]
		if !t.IsValid() {
			c.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeSignature,
				fmt.Sprintf("Field %q declares unknown type %q", path, t),
				ast.Position{},
				"Valid types: boolean, bigint, bigint_coercible, string, number, array, object, unknown",
			)
		}
		if root := RootSegment(path); builtins.IsReserved(root) {
			c.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeSignature,
				fmt.Sprintf("Field %q uses the reserved name %q", path, root),
				ast.Position{},
				"Rename the field; builtin names and the keywords true, false, null, every and length are reserved",
			)
		}
	}
}

func (c *SignatureChecker) infer(node ast.Node) ConstraintType {
	switch n := node.(type) {
	case *ast.Literal:
		return literalType(n.Value)

	case *ast.Identifier:
		return c.inferPath(n)

	case *ast.MemberAccess:
		if n.Property == "length" {
			return c.inferLength(n)
		}
		if _, _, ok := ast.FieldPath(n); ok {
			return c.inferPath(n)
		}
		c.infer(n.Object)
		return TypeUnknown

	case *ast.FunctionCall:
		return c.inferCall(n)

	case *ast.BinaryOp:
		return c.inferBinary(n)

	case *ast.UnaryOp:
		if n.Op == ast.OpNot {
			c.expectBool(n.Operand, n.Op)
			return TypeBoolean
		}
		t := c.infer(n.Operand)
		if !accepts(t, TypeNumber, TypeBigInt) {
			c.fail(n.Position, "Operator '-' requires a number, %s is %s", label(n.Operand), t)
			return TypeUnknown
		}
		return t

	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			c.infer(el)
		}
		return TypeArray

	case *ast.Every:
		return c.inferEvery(n)
	}
	return TypeUnknown
}

// inferPath resolves an identifier or member chain to its declared type.
func (c *SignatureChecker) inferPath(node ast.Node) ConstraintType {
	path, bound := c.declaredPath(node)
	return c.resolve(path, bound, node.Pos())
}

// declaredPath rewrites a field chain into the form used by the signature.
// A chain rooted in an every() parameter is rebased onto the element path of
// the array it ranges over. bound is true for such chains; path is "" when
// the array is not a declared field.
func (c *SignatureChecker) declaredPath(node ast.Node) (path string, bound bool) {
	path, root, ok := ast.FieldPath(node)
	if !ok {
		return "", false
	}
	for i := len(c.scope) - 1; i >= 0; i-- {
		if c.scope[i].name != root {
			continue
		}
		if c.scope[i].path == "" {
			return "", true
		}
		return elementPath(c.scope[i].path) + path[len(root):], true
	}
	return path, false
}

func (c *SignatureChecker) resolve(path string, bound bool, pos ast.Position) ConstraintType {
	if path == "" {
		return TypeUnknown
	}
	if t, ok := c.sig.Lookup(path); ok {
		return t
	}
	if bound {
		return TypeUnknown
	}
	if !c.reported[path] {
		c.reported[path] = true
		c.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeSignature,
			fmt.Sprintf("Field %q is not declared in the type signature", path),
			pos,
			mclErrors.SuggestFieldName(path, c.sig.Paths()),
		)
	}
	return TypeUnknown
}

func (c *SignatureChecker) inferLength(n *ast.MemberAccess) ConstraintType {
	t := c.infer(n.Object)
	if !accepts(t, TypeArray, TypeString) {
		c.fail(n.Position, ".length requires an array or string, %s is %s", label(n.Object), t)
	}
	return TypeNumber
}

func (c *SignatureChecker) inferCall(n *ast.FunctionCall) ConstraintType {
	b, ok := builtins.Lookup(n.Name)
	if !ok {
		c.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeUnknownIdentifier,
			fmt.Sprintf("Unknown function '%s'", n.Name),
			n.Position,
			mclErrors.SuggestFunctionName(n.Name, builtins.Names()),
		)
		for _, arg := range n.Args {
			c.infer(arg)
		}
		return TypeUnknown
	}

	for i, arg := range n.Args {
		c.checkArg(b, i, arg)
	}

	if b.Name == "previous" && len(n.Args) == 1 {
		if lit, ok := n.Args[0].(*ast.Literal); ok {
			if s, ok := lit.Value.(value.String); ok {
				if t, ok := c.sig.Lookup(string(s)); ok {
					return t
				}
			}
		}
	}
	return resultType(b.Returns)
}

func (c *SignatureChecker) checkArg(b *builtins.Builtin, i int, arg ast.Node) {
	kind := b.Param(i)

	// bigint_sum also takes a literal list of amounts
	if kind == builtins.ParamArray && b.Name == "bigint_sum" && i == 0 {
		if lit, ok := arg.(*ast.ArrayLiteral); ok {
			for _, el := range lit.Elements {
				c.expectBigInt(b.Name, el)
			}
			return
		}
	}

	switch kind {
	case builtins.ParamBigInt:
		c.expectBigInt(b.Name, arg)
	case builtins.ParamTimestamp:
		c.expectType(b.Name, arg, "a timestamp string", TypeString)
	case builtins.ParamNumber:
		c.expectType(b.Name, arg, "a number", TypeNumber, TypeBigInt, TypeBigIntCoercible)
	case builtins.ParamString:
		c.expectType(b.Name, arg, "a string", TypeString)
	case builtins.ParamArray:
		c.expectType(b.Name, arg, "an array", TypeArray)
	case builtins.ParamObject:
		c.expectType(b.Name, arg, "an object", TypeObject)
	case builtins.ParamPath:
		if lit, ok := arg.(*ast.Literal); ok {
			if s, ok := lit.Value.(value.String); ok {
				c.resolve(string(s), false, arg.Pos())
				return
			}
		}
		c.expectType(b.Name, arg, "a field path string", TypeString)
	default:
		c.infer(arg)
	}
}

// expectBigInt accepts bigint and bigint_coercible fields and integer literals.
func (c *SignatureChecker) expectBigInt(fn string, arg ast.Node) {
	if lit, ok := arg.(*ast.Literal); ok {
		if !value.IsBigIntCoercible(lit.Value) {
			c.fail(arg.Pos(), "%s requires an integer, got %s", fn, value.Canonical(lit.Value))
		}
		return
	}
	if t := c.infer(arg); !bigintCompatible(t) {
		c.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeSignature,
			fmt.Sprintf("%s requires bigint or bigint_coercible, %s is %s", fn, label(arg), t),
			arg.Pos(),
			"Declare monetary amounts as bigint_coercible strings",
		)
	}
}

func (c *SignatureChecker) expectType(fn string, arg ast.Node, want string, allowed ...ConstraintType) {
	if t := c.infer(arg); !accepts(t, allowed...) {
		c.fail(arg.Pos(), "%s requires %s, %s is %s", fn, want, label(arg), t)
	}
}

func (c *SignatureChecker) expectBool(node ast.Node, op ast.Operator) {
	if t := c.infer(node); !accepts(t, TypeBoolean) {
		c.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeSignature,
			fmt.Sprintf("Operator '%s' requires a boolean, %s is %s", op, label(node), t),
			node.Pos(),
			mclErrors.SuggestOperator(string(t)),
		)
	}
}

func (c *SignatureChecker) inferBinary(n *ast.BinaryOp) ConstraintType {
	switch {
	case n.Op.IsLogical():
		c.expectBool(n.Left, n.Op)
		c.expectBool(n.Right, n.Op)

	case n.Op == ast.OpIsNull || n.Op == ast.OpNotNull:
		c.infer(n.Left)

	case n.Op.IsOrdering():
		l, r := c.infer(n.Left), c.infer(n.Right)
		if !canOrder(l, r) {
			suggestion := mclErrors.SuggestOperator(string(l))
			if bigintCompatible(l) && bigintCompatible(r) {
				suggestion = "Integer strings order as text; use bigint_gt or bigint_gte"
			}
			c.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeSignature,
				fmt.Sprintf("Operator '%s' cannot order %s against %s", n.Op, l, r),
				n.Position,
				suggestion,
			)
		}

	default:
		l, r := c.infer(n.Left), c.infer(n.Right)
		if !canEqual(l, r) {
			c.fail(n.Position, "Operator '%s' compares %s with %s, which are never equal", n.Op, l, r)
		}
	}
	return TypeBoolean
}

func (c *SignatureChecker) inferEvery(n *ast.Every) ConstraintType {
	t := c.infer(n.Array)
	if !accepts(t, TypeArray) {
		c.fail(n.Position, ".every requires an array, %s is %s", label(n.Array), t)
	}

	param := boundParam{name: n.Param}
	param.path, _ = c.declaredPath(n.Array)
	c.scope = append(c.scope, param)
	c.expectBool(n.Predicate, "every")
	c.scope = c.scope[:len(c.scope)-1]

	return TypeBoolean
}

func (c *SignatureChecker) fail(pos ast.Position, format string, args ...interface{}) {
	c.errors.Add(mclErrors.NewAt(mclErrors.ErrorTypeSignature, pos, format, args...))
}

func literalType(v value.Value) ConstraintType {
	switch x := v.(type) {
	case value.Bool:
		return TypeBoolean
	case value.Number:
		return TypeNumber
	case value.BigInt:
		return TypeBigInt
	case value.String:
		if value.IsBigIntCoercible(x) {
			return TypeBigIntCoercible
		}
		return TypeString
	case value.Array:
		return TypeArray
	case value.Object:
		return TypeObject
	}
	return TypeUnknown
}

func resultType(r builtins.ResultKind) ConstraintType {
	switch r {
	case builtins.ResultBool:
		return TypeBoolean
	case builtins.ResultBigInt:
		return TypeBigInt
	case builtins.ResultNumber:
		return TypeNumber
	case builtins.ResultString:
		return TypeString
	}
	return TypeUnknown
}

// label names an operand in messages.
func label(n ast.Node) string {
	if path, _, ok := ast.FieldPath(n); ok {
		return fmt.Sprintf("field '%s'", path)
	}
	if call, ok := n.(*ast.FunctionCall); ok {
		return call.Name + "()"
	}
	return strings.ReplaceAll(string(n.Kind()), "_", " ")
}
