package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"mercator-hq/covenant/pkg/mcl/ast"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
)

// tokenType identifies the lexical class of a token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenLParen   // (
	tokenRParen   // )
	tokenLBracket // [
	tokenRBracket // ]
	tokenComma    // ,
	tokenDot      // .
	tokenArrow    // =>
	tokenOr       // ||
	tokenAnd      // &&
	tokenEq       // ==
	tokenNotEq    // !=
	tokenLess     // <
	tokenGreater  // >
	tokenLessEq   // <=
	tokenGreaterEq
	tokenBang  // !
	tokenMinus // -
)

var tokenNames = map[tokenType]string{
	tokenEOF:       "end of expression",
	tokenIdent:     "identifier",
	tokenNumber:    "number",
	tokenString:    "string",
	tokenLParen:    "'('",
	tokenRParen:    "')'",
	tokenLBracket:  "'['",
	tokenRBracket:  "']'",
	tokenComma:     "','",
	tokenDot:       "'.'",
	tokenArrow:     "'=>'",
	tokenOr:        "'||'",
	tokenAnd:       "'&&'",
	tokenEq:        "'=='",
	tokenNotEq:     "'!='",
	tokenLess:      "'<'",
	tokenGreater:   "'>'",
	tokenLessEq:    "'<='",
	tokenGreaterEq: "'>='",
	tokenBang:      "'!'",
	tokenMinus:     "'-'",
}

func (t tokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// token is a lexical token with its source position.
type token struct {
	typ  tokenType
	text string // identifier name, number text or decoded string contents
	pos  ast.Position
}

// describe returns a short description used in error messages.
func (t token) describe() string {
	switch t.typ {
	case tokenIdent:
		return fmt.Sprintf("identifier '%s'", t.text)
	case tokenNumber:
		return fmt.Sprintf("number %s", t.text)
	case tokenString:
		return fmt.Sprintf("string '%s'", t.text)
	default:
		return t.typ.String()
	}
}

// two-character operators, checked before single characters
var operators2 = map[string]tokenType{
	"=>": tokenArrow,
	"||": tokenOr,
	"&&": tokenAnd,
	"==": tokenEq,
	"!=": tokenNotEq,
	"<=": tokenLessEq,
	">=": tokenGreaterEq,
}

var operators1 = map[byte]tokenType{
	'(': tokenLParen,
	')': tokenRParen,
	'[': tokenLBracket,
	']': tokenRBracket,
	',': tokenComma,
	'.': tokenDot,
	'<': tokenLess,
	'>': tokenGreater,
	'!': tokenBang,
	'-': tokenMinus,
}

// lexer converts expression text into tokens.
type lexer struct {
	src    string
	offset int
	column int // rune column of offset, 1-based
}

// tokenize splits src into tokens terminated by tokenEOF.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, column: 1}
	tokens := make([]token, 0, len(src)/3+1)

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.typ == tokenEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) position() ast.Position {
	return ast.Position{Offset: lx.offset, Column: lx.column}
}

func (lx *lexer) advance(n int) {
	lx.column += utf8.RuneCountInString(lx.src[lx.offset : lx.offset+n])
	lx.offset += n
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()

	pos := lx.position()
	if lx.offset >= len(lx.src) {
		return token{typ: tokenEOF, pos: pos}, nil
	}

	rest := lx.src[lx.offset:]
	c := rest[0]

	if len(rest) >= 2 {
		if typ, ok := operators2[rest[:2]]; ok {
			lx.advance(2)
			return token{typ: typ, text: rest[:2], pos: pos}, nil
		}
	}

	switch {
	case c == '\'':
		return lx.lexString(pos)
	case isDigit(c):
		return lx.lexNumber(pos)
	case isIdentStart(c):
		return lx.lexIdent(pos), nil
	}

	if typ, ok := operators1[c]; ok {
		lx.advance(1)
		return token{typ: typ, text: string(c), pos: pos}, nil
	}

	r, _ := utf8.DecodeRuneInString(rest)
	suggestion := ""
	switch r {
	case '"':
		suggestion = "String literals use single quotes: 'text'"
	case '=':
		suggestion = "Use '==' for comparison or '=>' for implication"
	case '&', '|':
		suggestion = "Logical operators are '&&' and '||'"
	}
	return token{}, &mclErrors.Error{
		Type:       mclErrors.ErrorTypeParse,
		Message:    fmt.Sprintf("Unexpected character %q", r),
		Position:   pos,
		Suggestion: suggestion,
	}
}

func (lx *lexer) skipSpace() {
	for lx.offset < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.offset:])
		if !unicode.IsSpace(r) {
			return
		}
		lx.advance(size)
	}
}

func (lx *lexer) lexIdent(pos ast.Position) token {
	end := lx.offset
	for end < len(lx.src) && isIdentPart(lx.src[end]) {
		end++
	}
	text := lx.src[lx.offset:end]
	lx.advance(end - lx.offset)
	return token{typ: tokenIdent, text: text, pos: pos}
}

func (lx *lexer) lexNumber(pos ast.Position) (token, error) {
	end := lx.offset
	for end < len(lx.src) && isDigit(lx.src[end]) {
		end++
	}

	// Fraction: a dot must be followed by a digit, otherwise it is member access
	if end+1 < len(lx.src) && lx.src[end] == '.' && isDigit(lx.src[end+1]) {
		end++
		for end < len(lx.src) && isDigit(lx.src[end]) {
			end++
		}
	}

	// Exponent
	if end < len(lx.src) && (lx.src[end] == 'e' || lx.src[end] == 'E') {
		exp := end + 1
		if exp < len(lx.src) && (lx.src[exp] == '+' || lx.src[exp] == '-') {
			exp++
		}
		if exp >= len(lx.src) || !isDigit(lx.src[exp]) {
			return token{}, &mclErrors.Error{
				Type:     mclErrors.ErrorTypeParse,
				Message:  "Malformed number exponent",
				Position: pos,
			}
		}
		for exp < len(lx.src) && isDigit(lx.src[exp]) {
			exp++
		}
		end = exp
	}

	if end < len(lx.src) && isIdentStart(lx.src[end]) {
		return token{}, &mclErrors.Error{
			Type:     mclErrors.ErrorTypeParse,
			Message:  fmt.Sprintf("Malformed number %q", lx.src[lx.offset:end+1]),
			Position: pos,
		}
	}

	text := lx.src[lx.offset:end]
	lx.advance(end - lx.offset)
	return token{typ: tokenNumber, text: text, pos: pos}, nil
}

func (lx *lexer) lexString(pos ast.Position) (token, error) {
	var sb strings.Builder
	i := lx.offset + 1

	for i < len(lx.src) {
		c := lx.src[i]
		switch c {
		case '\'':
			lx.advance(i + 1 - lx.offset)
			return token{typ: tokenString, text: sb.String(), pos: pos}, nil
		case '\\':
			if i+1 >= len(lx.src) {
				i++
				continue
			}
			switch esc := lx.src[i+1]; esc {
			case '\'', '\\':
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return token{}, &mclErrors.Error{
					Type:     mclErrors.ErrorTypeParse,
					Message:  fmt.Sprintf("Unknown escape sequence '\\%c'", esc),
					Position: pos,
				}
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}

	return token{}, &mclErrors.Error{
		Type:       mclErrors.ErrorTypeParse,
		Message:    "Unterminated string literal",
		Position:   pos,
		Suggestion: "Close the string with a single quote",
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
