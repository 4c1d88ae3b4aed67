package validator

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/covenant/pkg/mcl/ast"
	"mercator-hq/covenant/pkg/mcl/builtins"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
)

var (
	// semverPattern validates semantic version strings (e.g., "1.0.0", "2.1.3")
	semverPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

	// idPattern validates constraint ids (e.g., "budget-conserved", "saga.amount_ok")
	idPattern = regexp.MustCompile(`^[a-z][a-z0-9_.-]*$`)

	// supportedExpressionVersions lists the expression language versions this
	// module evaluates.
	supportedExpressionVersions = map[string]bool{
		"1.0": true,
	}

	severities = map[string]bool{
		"error":   true,
		"warning": true,
		"info":    true,
	}
)

// FileSpec is the part of a constraint file that validation looks at.
type FileSpec struct {
	SchemaID          string
	ContractVersion   string
	ExpressionVersion string
	Entries           []EntrySpec
}

// EntrySpec is one constraint entry of a FileSpec.
type EntrySpec struct {
	ID         string
	Expression string
	Severity   string
	Fields     []string
	Signature  *ConstraintTypeSignature
}

// StructuralValidator validates the shape of a constraint file: required
// keys, naming, unique ids, severities and reserved field names. It does not
// look inside expressions.
type StructuralValidator struct {
	errors *mclErrors.ErrorList
}

// NewStructuralValidator creates a new structural validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{
		errors: mclErrors.NewErrorList(),
	}
}

// Validate performs structural validation on a constraint file.
// It returns an ErrorList containing all structural errors found.
func (v *StructuralValidator) Validate(file *FileSpec) error {
	v.errors = mclErrors.NewErrorList()

	if file == nil {
		v.addf("Constraint file is empty")
		return v.errors.ToError()
	}

	v.validateHeader(file)
	v.validateEntries(file)

	return v.errors.ToError()
}

func (v *StructuralValidator) validateHeader(file *FileSpec) {
	if file.SchemaID == "" {
		v.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeStructural,
			"Missing required field 'schema_id'",
			ast.Position{},
			mclErrors.SuggestMissingField("schema_id", `"delegation-chain"`),
		)
	}

	if file.ContractVersion == "" {
		v.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeStructural,
			"Missing required field 'contract_version'",
			ast.Position{},
			mclErrors.SuggestMissingField("contract_version", `"1.0.0"`),
		)
	} else if !semverPattern.MatchString(file.ContractVersion) {
		v.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeStructural,
			fmt.Sprintf("Contract version %q must follow semantic versioning", file.ContractVersion),
			ast.Position{},
			"Example: '1.0.0' or '2.1.3-beta.1'",
		)
	}

	if file.ExpressionVersion != "" && !supportedExpressionVersions[file.ExpressionVersion] {
		v.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeStructural,
			fmt.Sprintf("Unsupported expression version %q", file.ExpressionVersion),
			ast.Position{},
			"Supported versions: 1.0",
		)
	}

	if len(file.Entries) == 0 {
		v.errors.AddErrorWithSuggestion(
			mclErrors.ErrorTypeStructural,
			"Constraint file must have at least one constraint",
			ast.Position{},
			"Add a 'constraints' section with at least one entry",
		)
	}
}

func (v *StructuralValidator) validateEntries(file *FileSpec) {
	ids := make(map[string]bool)

	for i, entry := range file.Entries {
		if entry.ID == "" {
			v.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeStructural,
				fmt.Sprintf("Constraint at index %d missing required field 'id'", i),
				ast.Position{},
				"Add a unique id for this constraint",
			)
			continue
		}
		if !idPattern.MatchString(entry.ID) {
			v.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeStructural,
				fmt.Sprintf("Constraint id %q must be lowercase", entry.ID),
				ast.Position{},
				"Example: 'budget-conserved'",
			)
		}
		if ids[entry.ID] {
			v.addf("Duplicate constraint id %q", entry.ID)
		}
		ids[entry.ID] = true

		if strings.TrimSpace(entry.Expression) == "" {
			v.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeStructural,
				fmt.Sprintf("Constraint %q has no expression", entry.ID),
				ast.Position{},
				mclErrors.SuggestMissingField("expression", `"total > 0"`),
			)
		}

		if entry.Severity != "" && !severities[entry.Severity] {
			v.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeStructural,
				fmt.Sprintf("Constraint %q has unknown severity %q", entry.ID, entry.Severity),
				ast.Position{},
				"Valid severities: error, warning, info",
			)
		}

		v.validateFields(entry)
	}
}

// validateFields rejects duplicate field names and names that collide with
// the reserved namespace.
func (v *StructuralValidator) validateFields(entry EntrySpec) {
	seen := make(map[string]bool)
	for _, field := range entry.Fields {
		if seen[field] {
			v.addf("Constraint %q lists field %q twice", entry.ID, field)
		}
		seen[field] = true

		if root := RootSegment(field); builtins.IsReserved(root) {
			v.errors.AddErrorWithSuggestion(
				mclErrors.ErrorTypeStructural,
				fmt.Sprintf("Constraint %q field %q uses the reserved name %q", entry.ID, field, root),
				ast.Position{},
				"Rename the field; run 'covenant builtins --reserved' for the reserved names",
			)
		}
	}
}

func (v *StructuralValidator) addf(format string, args ...interface{}) {
	v.errors.Add(mclErrors.New(mclErrors.ErrorTypeStructural, format, args...))
}
