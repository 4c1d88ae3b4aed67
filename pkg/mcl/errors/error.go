package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"mercator-hq/covenant/pkg/mcl/ast"
)

// ErrorType categorizes the type of error encountered during parsing,
// evaluation or static checking.
type ErrorType string

const (
	ErrorTypeParse             ErrorType = "parse"              // Malformed expression syntax
	ErrorTypeTooDeep           ErrorType = "too_deep"           // Nesting exceeds the depth limit
	ErrorTypeUnknownIdentifier ErrorType = "unknown_identifier" // Name outside the builtin registry
	ErrorTypeTypeCoercion      ErrorType = "type_coercion"      // Value not usable by the operation
	ErrorTypeSignature         ErrorType = "signature"          // Type signature mismatch (static)
	ErrorTypeStructural        ErrorType = "structural"         // Constraint file schema violation
	ErrorTypeIO                ErrorType = "io"                 // File I/O error
)

// Sentinels for errors.Is comparisons against a category.
var (
	ErrParse             = &Error{Type: ErrorTypeParse}
	ErrTooDeep           = &Error{Type: ErrorTypeTooDeep}
	ErrUnknownIdentifier = &Error{Type: ErrorTypeUnknownIdentifier}
	ErrTypeCoercion      = &Error{Type: ErrorTypeTypeCoercion}
	ErrSignature         = &Error{Type: ErrorTypeSignature}
)

// Error represents a rich error with position, context, and suggestions.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Position   ast.Position // Position within the expression (optional)
	Expression string       // Expression text the position refers to (optional)
	Context    string       // Rendered expression with caret (optional)
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface.
// It returns a formatted error message with position and context.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))

	if e.Position.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Position.String()))
	}

	if e.Context != "" {
		sb.WriteString("\n  |\n")
		sb.WriteString(strings.TrimSuffix(e.Context, "\n"))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// Is reports whether target is the category sentinel for this error's type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// New creates an error of the given type.
func New(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewAt creates an error of the given type at a position in the expression.
func NewAt(errType ErrorType, pos ast.Position, format string, args ...interface{}) *Error {
	return &Error{
		Type:     errType,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
	}
}

// TypeErrorf creates a type-coercion error.
func TypeErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeTypeCoercion, format, args...)
}

// KindOf returns the category of err, or "" if err is not an MCL error.
func KindOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	var el *ErrorList
	if stderrors.As(err, &el) && el.HasErrors() {
		return el.Errors[0].Type
	}
	return ""
}

// IsEvaluationFatal reports whether err belongs to one of the four categories
// that abort evaluation (parse, too deep, unknown identifier, type coercion).
func IsEvaluationFatal(err error) bool {
	switch KindOf(err) {
	case ErrorTypeParse, ErrorTypeTooDeep, ErrorTypeUnknownIdentifier, ErrorTypeTypeCoercion:
		return true
	}
	return false
}

// ErrorList represents a collection of errors encountered during checking.
// It allows accumulating multiple errors instead of failing on the first error.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, pos ast.Position) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Position: pos,
	})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, pos ast.Position, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Message:    message,
		Position:   pos,
		Suggestion: suggestion,
	})
}

// Merge appends all errors of other (an *Error or *ErrorList) to the list.
// Errors of any other type are wrapped as ErrorTypeIO.
func (el *ErrorList) Merge(err error) {
	if err == nil {
		return
	}
	var list *ErrorList
	if stderrors.As(err, &list) {
		el.Errors = append(el.Errors, list.Errors...)
		return
	}
	var e *Error
	if stderrors.As(err, &e) {
		el.Add(e)
		return
	}
	el.Add(&Error{Type: ErrorTypeIO, Message: err.Error()})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
// It returns all errors formatted as a single string.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if el.Count() == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}
