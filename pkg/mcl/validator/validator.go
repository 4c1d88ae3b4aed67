package validator

import (
	"fmt"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/parser"
)

// Validator is the main validator that orchestrates all validation passes.
// It runs structural validation on the file, then parses every expression
// and checks it against its type signature.
type Validator struct {
	structural *StructuralValidator
	signature  *SignatureChecker
	parser     *parser.Parser
}

// NewValidator creates a new validator with all validation passes.
func NewValidator() *Validator {
	return &Validator{
		structural: NewStructuralValidator(),
		signature:  NewSignatureChecker(),
		parser:     parser.New(),
	}
}

// Validate runs all validation passes on a constraint file.
// It accumulates errors from all passes and returns them together.
func (v *Validator) Validate(file *FileSpec) error {
	errors := mclErrors.NewErrorList()

	errors.Merge(v.structural.Validate(file))

	// Expressions are only looked at once the file itself is well formed.
	// This prevents cascading errors
	if errors.HasErrorType(mclErrors.ErrorTypeStructural) {
		return errors.ToError()
	}

	errors.Merge(v.ValidateExpressions(file))
	return errors.ToError()
}

// ValidateStructural runs only structural validation.
func (v *Validator) ValidateStructural(file *FileSpec) error {
	return v.structural.Validate(file)
}

// ValidateExpressions parses every entry's expression and, when the entry
// declares a type signature, checks the expression against it. Messages are
// prefixed with the constraint id.
func (v *Validator) ValidateExpressions(file *FileSpec) error {
	errors := mclErrors.NewErrorList()
	if file == nil {
		return nil
	}

	for _, entry := range file.Entries {
		node, err := v.parser.Parse(entry.Expression)
		if err != nil {
			errors.Merge(prefix(entry.ID, err))
			continue
		}
		if entry.Signature == nil {
			continue
		}
		if err := v.signature.CheckNode(entry.Signature, entry.Expression, node); err != nil {
			errors.Merge(prefix(entry.ID, err))
		}
	}

	return errors.ToError()
}

// prefix names the constraint an error belongs to.
func prefix(id string, err error) error {
	list := mclErrors.NewErrorList()
	list.Merge(err)
	for _, e := range list.Errors {
		e.Message = fmt.Sprintf("Constraint %q: %s", id, e.Message)
	}
	return list
}
