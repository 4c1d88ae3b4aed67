package parser

import (
	"fmt"
	"math/big"

	"mercator-hq/covenant/pkg/mcl/ast"
	"mercator-hq/covenant/pkg/mcl/builtins"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// DefaultMaxDepth is the maximum number of nested expression contexts.
const DefaultMaxDepth = 32

// Parser parses MCL expressions into Abstract Syntax Trees.
// A Parser holds only configuration and is safe for concurrent use.
type Parser struct {
	maxDepth int // Maximum nesting depth (default: 32)
}

// New creates a new parser with default configuration.
func New() *Parser {
	return &Parser{
		maxDepth: DefaultMaxDepth,
	}
}

// WithMaxDepth sets the maximum nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// MaxDepth returns the configured nesting limit.
func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

// Parse parses an expression with the default parser.
func Parse(expr string) (ast.Node, error) {
	return New().Parse(expr)
}

// Parse parses expr and returns the root node. Errors are *mclErrors.Error
// values with the expression context attached.
func (p *Parser) Parse(expr string) (ast.Node, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, mclErrors.AddContext(err, expr)
	}

	st := &state{tokens: tokens, maxDepth: p.maxDepth}
	node, err := st.parseNested(st.peek().pos)
	if err != nil {
		return nil, mclErrors.AddContext(err, expr)
	}

	if tok := st.peek(); tok.typ != tokenEOF {
		err := &mclErrors.Error{
			Type:     mclErrors.ErrorTypeParse,
			Message:  fmt.Sprintf("Unexpected %s after end of expression", tok.describe()),
			Position: tok.pos,
		}
		return nil, mclErrors.AddContext(err, expr)
	}

	// Desugared implications add a negation the token stream never showed.
	if depth := ast.NestingDepth(node); depth > p.maxDepth {
		err := &mclErrors.Error{
			Type:     mclErrors.ErrorTypeTooDeep,
			Message:  fmt.Sprintf("Expression nesting of %d exceeds the maximum depth of %d", depth, p.maxDepth),
			Position: node.Pos(),
		}
		return nil, mclErrors.AddContext(err, expr)
	}

	return node, nil
}

// state is the cursor over one token stream.
type state struct {
	tokens   []token
	pos      int
	depth    int
	maxDepth int
}

func (st *state) peek() token {
	return st.tokens[st.pos]
}

func (st *state) next() token {
	tok := st.tokens[st.pos]
	if tok.typ != tokenEOF {
		st.pos++
	}
	return tok
}

func (st *state) expect(typ tokenType, context string) (token, error) {
	tok := st.peek()
	if tok.typ != typ {
		return tok, &mclErrors.Error{
			Type:     mclErrors.ErrorTypeParse,
			Message:  fmt.Sprintf("Expected %s %s, found %s", typ, context, tok.describe()),
			Position: tok.pos,
		}
	}
	return st.next(), nil
}

// enter opens a nested expression context.
func (st *state) enter(pos ast.Position) error {
	st.depth++
	if st.depth > st.maxDepth {
		return &mclErrors.Error{
			Type:       mclErrors.ErrorTypeTooDeep,
			Message:    fmt.Sprintf("Expression nesting exceeds the maximum depth of %d", st.maxDepth),
			Position:   pos,
			Suggestion: "Split the rule into several constraints",
		}
	}
	return nil
}

func (st *state) leave() {
	st.depth--
}

// parseNested parses a full expression inside its own depth context.
func (st *state) parseNested(pos ast.Position) (ast.Node, error) {
	if err := st.enter(pos); err != nil {
		return nil, err
	}
	defer st.leave()
	return st.parseImplication()
}

// parseImplication handles right-associative A => B => C, desugared to
// !A || (!B || C). Operands are collected first so long chains do not recurse.
func (st *state) parseImplication() (ast.Node, error) {
	first, err := st.parseOr()
	if err != nil {
		return nil, err
	}

	operands := []ast.Node{first}
	var arrows []ast.Position
	for st.peek().typ == tokenArrow {
		arrows = append(arrows, st.next().pos)
		operand, err := st.parseOr()
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}

	result := operands[len(operands)-1]
	for i := len(operands) - 2; i >= 0; i-- {
		antecedent := operands[i]
		result = &ast.BinaryOp{
			Op:       ast.OpOr,
			Left:     &ast.UnaryOp{Op: ast.OpNot, Operand: antecedent, Position: antecedent.Pos()},
			Right:    result,
			Position: arrows[i],
		}
	}
	return result, nil
}

func (st *state) parseOr() (ast.Node, error) {
	left, err := st.parseAnd()
	if err != nil {
		return nil, err
	}
	for st.peek().typ == tokenOr {
		op := st.next()
		right, err := st.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: ast.OpOr, Left: left, Right: right, Position: op.pos}
	}
	return left, nil
}

func (st *state) parseAnd() (ast.Node, error) {
	left, err := st.parseComparison()
	if err != nil {
		return nil, err
	}
	for st.peek().typ == tokenAnd {
		op := st.next()
		right, err := st.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: ast.OpAnd, Left: left, Right: right, Position: op.pos}
	}
	return left, nil
}

var comparisonOps = map[tokenType]ast.Operator{
	tokenEq:        ast.OpEqual,
	tokenNotEq:     ast.OpNotEqual,
	tokenLess:      ast.OpLessThan,
	tokenGreater:   ast.OpGreaterThan,
	tokenLessEq:    ast.OpLessEqual,
	tokenGreaterEq: ast.OpGreaterEqual,
}

// parseComparison parses a single, non-associative comparison.
func (st *state) parseComparison() (ast.Node, error) {
	left, err := st.parseUnary()
	if err != nil {
		return nil, err
	}

	op, ok := comparisonOps[st.peek().typ]
	if !ok {
		return left, nil
	}
	opTok := st.next()

	right, err := st.parseUnary()
	if err != nil {
		return nil, err
	}

	if _, chained := comparisonOps[st.peek().typ]; chained {
		return nil, &mclErrors.Error{
			Type:       mclErrors.ErrorTypeParse,
			Message:    fmt.Sprintf("Comparison operators are non-associative: unexpected %s", st.peek().describe()),
			Position:   st.peek().pos,
			Suggestion: "Combine comparisons with '&&' or add parentheses",
		}
	}

	// x == null and null == x become dedicated null checks
	if op == ast.OpEqual || op == ast.OpNotEqual {
		nullOp := ast.OpIsNull
		if op == ast.OpNotEqual {
			nullOp = ast.OpNotNull
		}
		switch {
		case ast.IsNullLiteral(right):
			return &ast.BinaryOp{Op: nullOp, Left: left, Right: right, Position: opTok.pos}, nil
		case ast.IsNullLiteral(left):
			return &ast.BinaryOp{Op: nullOp, Left: right, Right: left, Position: opTok.pos}, nil
		}
	}

	return &ast.BinaryOp{Op: op, Left: left, Right: right, Position: opTok.pos}, nil
}

// parseUnary parses prefix ! and -. Each application is a nesting level.
// Negated numeric literals fold into a single literal.
func (st *state) parseUnary() (ast.Node, error) {
	tok := st.peek()
	if tok.typ != tokenBang && tok.typ != tokenMinus {
		return st.parsePostfix()
	}
	st.next()

	if err := st.enter(tok.pos); err != nil {
		return nil, err
	}
	operand, err := st.parseUnary()
	st.leave()
	if err != nil {
		return nil, err
	}

	if tok.typ == tokenBang {
		return &ast.UnaryOp{Op: ast.OpNot, Operand: operand, Position: tok.pos}, nil
	}

	if lit, ok := operand.(*ast.Literal); ok {
		switch v := lit.Value.(type) {
		case value.Number:
			return &ast.Literal{Value: -v, Position: tok.pos}, nil
		case value.BigInt:
			return &ast.Literal{Value: value.NewBigInt(new(big.Int).Neg(v.Int())), Position: tok.pos}, nil
		}
	}
	return &ast.UnaryOp{Op: ast.OpNegate, Operand: operand, Position: tok.pos}, nil
}

// parsePostfix parses member access, .length and .every(x => pred).
func (st *state) parsePostfix() (ast.Node, error) {
	node, err := st.parsePrimary()
	if err != nil {
		return nil, err
	}

	for st.peek().typ == tokenDot {
		dot := st.next()
		prop, err := st.expect(tokenIdent, "after '.'")
		if err != nil {
			return nil, err
		}

		if st.peek().typ != tokenLParen {
			node = &ast.MemberAccess{Object: node, Property: prop.text, Position: dot.pos}
			continue
		}

		if prop.text != "every" {
			return nil, &mclErrors.Error{
				Type:       mclErrors.ErrorTypeUnknownIdentifier,
				Message:    fmt.Sprintf("Unknown method '%s'", prop.text),
				Position:   prop.pos,
				Suggestion: "The only method is .every(x => predicate); call builtins as functions",
			}
		}

		if node, err = st.parseEvery(node, prop); err != nil {
			return nil, err
		}
	}

	return node, nil
}

func (st *state) parseEvery(array ast.Node, method token) (ast.Node, error) {
	if _, err := st.expect(tokenLParen, "after 'every'"); err != nil {
		return nil, err
	}
	param, err := st.expect(tokenIdent, "as the every() parameter name")
	if err != nil {
		return nil, err
	}
	if builtins.IsReserved(param.text) {
		return nil, &mclErrors.Error{
			Type:     mclErrors.ErrorTypeParse,
			Message:  fmt.Sprintf("'%s' is reserved and cannot name an every() parameter", param.text),
			Position: param.pos,
		}
	}
	if _, err := st.expect(tokenArrow, "after the every() parameter"); err != nil {
		return nil, err
	}

	predicate, err := st.parseNested(st.peek().pos)
	if err != nil {
		return nil, err
	}
	if _, err := st.expect(tokenRParen, "to close every()"); err != nil {
		return nil, err
	}

	return &ast.Every{Array: array, Param: param.text, Predicate: predicate, Position: method.pos}, nil
}

func (st *state) parsePrimary() (ast.Node, error) {
	tok := st.peek()

	switch tok.typ {
	case tokenNumber:
		st.next()
		v, err := value.ParseNumber(tok.text)
		if err != nil {
			return nil, &mclErrors.Error{
				Type:     mclErrors.ErrorTypeParse,
				Message:  fmt.Sprintf("Invalid number %s", tok.text),
				Position: tok.pos,
			}
		}
		return &ast.Literal{Value: v, Position: tok.pos}, nil

	case tokenString:
		st.next()
		return &ast.Literal{Value: value.String(tok.text), Position: tok.pos}, nil

	case tokenIdent:
		st.next()
		switch tok.text {
		case "true":
			return &ast.Literal{Value: value.Bool(true), Position: tok.pos}, nil
		case "false":
			return &ast.Literal{Value: value.Bool(false), Position: tok.pos}, nil
		case "null":
			return &ast.Literal{Value: value.Null, Position: tok.pos}, nil
		}
		if st.peek().typ == tokenLParen {
			return st.parseCall(tok)
		}
		return &ast.Identifier{Name: tok.text, Position: tok.pos}, nil

	case tokenLParen:
		st.next()
		inner, err := st.parseNested(tok.pos)
		if err != nil {
			return nil, err
		}
		if _, err := st.expect(tokenRParen, "to close '('"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenLBracket:
		return st.parseArray()
	}

	return nil, &mclErrors.Error{
		Type:     mclErrors.ErrorTypeParse,
		Message:  fmt.Sprintf("Unexpected %s", tok.describe()),
		Position: tok.pos,
	}
}

// parseCall parses name(arg, ...) for a registered builtin.
func (st *state) parseCall(name token) (ast.Node, error) {
	b, ok := builtins.Lookup(name.text)
	if !ok {
		return nil, &mclErrors.Error{
			Type:       mclErrors.ErrorTypeUnknownIdentifier,
			Message:    fmt.Sprintf("Unknown function '%s'", name.text),
			Position:   name.pos,
			Suggestion: mclErrors.SuggestFunctionName(name.text, builtins.Names()),
		}
	}

	st.next() // (
	args, err := st.parseList(tokenRParen, "to close the argument list")
	if err != nil {
		return nil, err
	}

	if err := b.CheckArity(len(args)); err != nil {
		if e, ok := err.(*mclErrors.Error); ok {
			e.Position = name.pos
		}
		return nil, err
	}

	return &ast.FunctionCall{Name: name.text, Args: args, Position: name.pos}, nil
}

func (st *state) parseArray() (ast.Node, error) {
	open := st.next()
	elements, err := st.parseList(tokenRBracket, "to close the array")
	if err != nil {
		return nil, err
	}
	return &ast.ArrayLiteral{Elements: elements, Position: open.pos}, nil
}

// parseList parses comma-separated expressions up to the closing token,
// each in its own depth context.
func (st *state) parseList(closing tokenType, context string) ([]ast.Node, error) {
	var items []ast.Node
	if st.peek().typ == closing {
		st.next()
		return items, nil
	}

	for {
		item, err := st.parseNested(st.peek().pos)
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if st.peek().typ == tokenComma {
			st.next()
			continue
		}
		if _, err := st.expect(closing, context); err != nil {
			return nil, err
		}
		return items, nil
	}
}
