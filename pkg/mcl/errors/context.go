package errors

import (
	"strings"

	"mercator-hq/covenant/pkg/mcl/ast"
)

// ExtractContext renders the expression with a caret under the given position.
// Multi-line expressions are reduced to the line containing the position.
// It returns an empty string when the position is not valid.
func ExtractContext(expression string, pos ast.Position) string {
	if !pos.IsValid() || expression == "" {
		return ""
	}

	offset := pos.Offset
	if offset > len(expression) {
		offset = len(expression)
	}

	// Isolate the line holding the offset
	start := strings.LastIndexByte(expression[:offset], '\n') + 1
	end := strings.IndexByte(expression[offset:], '\n')
	if end < 0 {
		end = len(expression)
	} else {
		end += offset
	}
	line := expression[start:end]
	column := len([]rune(expression[start:offset]))

	var sb strings.Builder
	sb.WriteString("  | ")
	sb.WriteString(line)
	sb.WriteString("\n  | ")
	sb.WriteString(strings.Repeat(" ", column))
	sb.WriteString("^\n")

	return sb.String()
}

// WithContext attaches the expression text and rendered caret context to err.
// Errors that already carry context are returned unchanged.
func WithContext(err *Error, expression string) *Error {
	if err == nil || err.Context != "" {
		return err
	}
	err.Expression = expression
	err.Context = ExtractContext(expression, err.Position)
	return err
}

// AddContext attaches expression context to err when it is an *Error or an
// *ErrorList; other errors are returned unchanged.
func AddContext(err error, expression string) error {
	switch e := err.(type) {
	case *Error:
		return WithContext(e, expression)
	case *ErrorList:
		for i := range e.Errors {
			e.Errors[i] = WithContext(e.Errors[i], expression)
		}
		return e
	}
	return err
}
