package mcl

import (
	"encoding/json"
	"fmt"

	"mercator-hq/covenant/pkg/mcl/ast"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/parser"
	"mercator-hq/covenant/pkg/mcl/validator"
	"mercator-hq/covenant/pkg/mcl/value"
)

// Parse parses an expression without evaluating it.
// Use this if you want to inspect the tree or evaluate it repeatedly.
func Parse(expr string) (ast.Node, error) {
	return parser.Parse(expr)
}

// Evaluate is a convenience function that parses expr and evaluates it
// against data. data may be a value.Value, raw JSON ([]byte or
// json.RawMessage) or any Go value that encoding/json can marshal.
//
// Failures are returned as *errors.Error with the expression rendered under
// a caret; they are never reported as false.
func Evaluate(data any, expr string, ctx *eval.Context) (bool, error) {
	node, err := parser.Parse(expr)
	if err != nil {
		return false, err
	}

	doc, err := ToValue(data)
	if err != nil {
		return false, err
	}

	ok, err := eval.Evaluate(doc, node, ctx)
	if err != nil {
		return false, mclErrors.AddContext(err, expr)
	}
	return ok, nil
}

// EvaluateJSON evaluates expr against a JSON document.
func EvaluateJSON(data []byte, expr string, ctx *eval.Context) (bool, error) {
	return Evaluate(json.RawMessage(data), expr, ctx)
}

// Check statically checks expr against a type signature.
func Check(sig *validator.ConstraintTypeSignature, expr string) error {
	return validator.NewSignatureChecker().Check(sig, expr)
}

// ToValue converts caller data into the evaluator's value model. Integers
// beyond 2^53 in raw JSON become exact big integers.
func ToValue(data any) (value.Value, error) {
	switch d := data.(type) {
	case value.Value:
		return d, nil
	case json.RawMessage:
		return decode(d)
	case []byte:
		return decode(d)
	}

	if v, err := value.FromGo(data); err == nil {
		return v, nil
	}

	// Structs and typed maps go through their JSON form.
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, mclErrors.TypeErrorf("Cannot convert %T to a document: %v", data, err)
	}
	return decode(raw)
}

func decode(raw []byte) (value.Value, error) {
	v, err := value.DecodeJSON(raw)
	if err != nil {
		return nil, &mclErrors.Error{
			Type:    mclErrors.ErrorTypeTypeCoercion,
			Message: fmt.Sprintf("Document is not valid JSON: %v", err),
		}
	}
	return v, nil
}
