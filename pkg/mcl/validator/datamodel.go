package validator

import (
	"sort"
	"strings"
)

// ConstraintType is the closed set of static types a field may be declared
// with in a type signature.
type ConstraintType string

const (
	TypeBoolean         ConstraintType = "boolean"
	TypeBigInt          ConstraintType = "bigint"
	TypeBigIntCoercible ConstraintType = "bigint_coercible" // integer written as a string
	TypeString          ConstraintType = "string"
	TypeNumber          ConstraintType = "number"
	TypeArray           ConstraintType = "array"
	TypeObject          ConstraintType = "object"
	TypeUnknown         ConstraintType = "unknown"
)

var constraintTypes = map[ConstraintType]bool{
	TypeBoolean:         true,
	TypeBigInt:          true,
	TypeBigIntCoercible: true,
	TypeString:          true,
	TypeNumber:          true,
	TypeArray:           true,
	TypeObject:          true,
	TypeUnknown:         true,
}

// IsValid reports whether t belongs to the closed type universe.
func (t ConstraintType) IsValid() bool {
	return constraintTypes[t]
}

// ConstraintTypeSignature declares the field types an expression may rely on.
// Paths are dotted; elements of an array field are addressed with "[]", so
// the budget of each link in links is "links[].budget".
type ConstraintTypeSignature struct {
	InputSchema string                    `yaml:"input_schema" json:"input_schema"`
	OutputType  ConstraintType            `yaml:"output_type" json:"output_type"`
	FieldTypes  map[string]ConstraintType `yaml:"field_types" json:"field_types"`
}

// Lookup returns the declared type of path.
func (s *ConstraintTypeSignature) Lookup(path string) (ConstraintType, bool) {
	if s == nil {
		return "", false
	}
	t, ok := s.FieldTypes[path]
	return t, ok
}

// Paths returns the declared field paths in sorted order.
func (s *ConstraintTypeSignature) Paths() []string {
	if s == nil {
		return nil
	}
	paths := make([]string, 0, len(s.FieldTypes))
	for path := range s.FieldTypes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// RootSegment returns the first segment of a declared path, without any
// array marker: "links[].budget" -> "links".
func RootSegment(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

// elementPath is the declared path of the elements of the array at path.
func elementPath(path string) string {
	return path + "[]"
}

// numericFamily groups types whose values order and compare against each
// other at run time.
func numericFamily(t ConstraintType) bool {
	return t == TypeNumber || t == TypeBigInt
}

// canOrder reports whether a < b is well defined for the two types. Two
// integer strings order lexicographically at run time, so the pair is
// rejected in favour of the bigint_* comparisons. A string literal that
// happens to look like an integer still orders against a string field.
func canOrder(a, b ConstraintType) bool {
	if a == TypeUnknown || b == TypeUnknown {
		return true
	}
	switch {
	case numericFamily(a) && numericFamily(b):
		return true
	case a == TypeString && b == TypeString:
		return true
	case a == TypeString && b == TypeBigIntCoercible, a == TypeBigIntCoercible && b == TypeString:
		return true
	case a == TypeBigInt && b == TypeBigIntCoercible, a == TypeBigIntCoercible && b == TypeBigInt:
		return true
	}
	return false
}

// canEqual reports whether a == b can ever be true for the two types.
func canEqual(a, b ConstraintType) bool {
	if a == TypeUnknown || b == TypeUnknown || a == b {
		return true
	}
	pair := func(x, y ConstraintType) bool {
		return (a == x && b == y) || (a == y && b == x)
	}
	return pair(TypeNumber, TypeBigInt) ||
		pair(TypeBigInt, TypeBigIntCoercible) ||
		pair(TypeString, TypeBigIntCoercible)
}

func bigintCompatible(t ConstraintType) bool {
	return t == TypeBigInt || t == TypeBigIntCoercible || t == TypeUnknown
}

func accepts(t ConstraintType, allowed ...ConstraintType) bool {
	if t == TypeUnknown {
		return true
	}
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}
