package constraint

import (
	"mercator-hq/covenant/pkg/mcl/validator"
)

// Severity of a constraint. Only error-severity failures make a report
// invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// File is a parsed constraint file.
type File struct {
	SchemaID          string       `yaml:"schema_id" json:"schema_id"`
	ContractVersion   string       `yaml:"contract_version" json:"contract_version"`
	ExpressionVersion string       `yaml:"expression_version,omitempty" json:"expression_version,omitempty"`
	Constraints       []Constraint `yaml:"constraints" json:"constraints"`

	// Path is where the file was loaded from; empty for in-memory files.
	Path string `yaml:"-" json:"-"`
}

// Constraint is one named expression of a file.
type Constraint struct {
	ID            string                             `yaml:"id" json:"id"`
	Expression    string                             `yaml:"expression" json:"expression"`
	Severity      Severity                           `yaml:"severity,omitempty" json:"severity,omitempty"`
	TypeSignature *validator.ConstraintTypeSignature `yaml:"type_signature,omitempty" json:"type_signature,omitempty"`
	Fields        []string                           `yaml:"fields,omitempty" json:"fields,omitempty"`
	Message       string                             `yaml:"message,omitempty" json:"message,omitempty"`
}

// EffectiveSeverity returns the declared severity, defaulting to error.
func (c *Constraint) EffectiveSeverity() Severity {
	if c.Severity == "" {
		return SeverityError
	}
	return c.Severity
}

// Spec returns the view of the file the validator works on.
func (f *File) Spec() *validator.FileSpec {
	if f == nil {
		return nil
	}
	spec := &validator.FileSpec{
		SchemaID:          f.SchemaID,
		ContractVersion:   f.ContractVersion,
		ExpressionVersion: f.ExpressionVersion,
		Entries:           make([]validator.EntrySpec, 0, len(f.Constraints)),
	}
	for _, c := range f.Constraints {
		spec.Entries = append(spec.Entries, validator.EntrySpec{
			ID:         c.ID,
			Expression: c.Expression,
			Severity:   string(c.Severity),
			Fields:     c.Fields,
			Signature:  c.TypeSignature,
		})
	}
	return spec
}

// Constraint returns the constraint with the given id.
func (f *File) Constraint(id string) (*Constraint, bool) {
	for i := range f.Constraints {
		if f.Constraints[i].ID == id {
			return &f.Constraints[i], true
		}
	}
	return nil, false
}

// Name identifies the file in logs: its path, or its schema id when it was
// not loaded from disk.
func (f *File) Name() string {
	if f.Path != "" {
		return f.Path
	}
	return f.SchemaID
}

// Validate runs structural validation and, when checkExpressions is set,
// parses every expression and checks it against its type signature.
func (f *File) Validate(checkExpressions bool) error {
	v := validator.NewValidator()
	if checkExpressions {
		return v.Validate(f.Spec())
	}
	return v.ValidateStructural(f.Spec())
}
