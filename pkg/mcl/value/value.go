// Package value defines the closed set of runtime values the MCL evaluator
// operates on. Loosely typed JSON input is converted once, at the decoding
// boundary, into these types; the evaluator never inspects interface{} data.
package value

import (
	"math/big"
	"sort"
)

// Kind is the runtime kind of a value. The string form matches what the
// type_of builtin reports.
type Kind string

const (
	KindAbsent Kind = "undefined"
	KindNull   Kind = "null"
	KindBool   Kind = "boolean"
	KindNumber Kind = "number"
	KindBigInt Kind = "bigint"
	KindString Kind = "string"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

// Value is an MCL runtime value. Only the types in this package implement it.
type Value interface {
	Kind() Kind
	value()
}

type absentValue struct{}

type nullValue struct{}

// Absent is the value of a field that does not exist in the document.
// It is distinct from Null: only null checks treat the two alike.
var Absent Value = absentValue{}

// Null is the JSON null value.
var Null Value = nullValue{}

// Bool is a boolean value.
type Bool bool

// Number is a floating point number (JSON number that fits in a float64 exactly
// or has a fractional part).
type Number float64

// String is a string value.
type String string

// Array is an ordered list of values.
type Array []Value

// Object is a JSON object.
type Object map[string]Value

// BigInt is an arbitrary-precision integer. The wrapped integer is never
// mutated after construction.
type BigInt struct {
	i *big.Int
}

// NewBigInt returns a BigInt holding a copy of i.
func NewBigInt(i *big.Int) BigInt {
	return BigInt{i: new(big.Int).Set(i)}
}

// BigIntFromInt64 returns a BigInt for n.
func BigIntFromInt64(n int64) BigInt {
	return BigInt{i: big.NewInt(n)}
}

// Int returns a copy of the integer.
func (b BigInt) Int() *big.Int {
	if b.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.i)
}

// String returns the base-10 representation.
func (b BigInt) String() string {
	if b.i == nil {
		return "0"
	}
	return b.i.String()
}

func (absentValue) Kind() Kind { return KindAbsent }
func (nullValue) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind        { return KindBool }
func (Number) Kind() Kind      { return KindNumber }
func (BigInt) Kind() Kind      { return KindBigInt }
func (String) Kind() Kind      { return KindString }
func (Array) Kind() Kind       { return KindArray }
func (Object) Kind() Kind      { return KindObject }

func (absentValue) value() {}
func (nullValue) value()   {}
func (Bool) value()        {}
func (Number) value()      {}
func (BigInt) value()      {}
func (String) value()      {}
func (Array) value()       {}
func (Object) value()      {}

// IsNullish returns true for Null and Absent.
func IsNullish(v Value) bool {
	if v == nil {
		return true
	}
	k := v.Kind()
	return k == KindNull || k == KindAbsent
}

// Keys returns the object's keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field returns the named field or Absent.
func (o Object) Field(name string) Value {
	if v, ok := o[name]; ok {
		return v
	}
	return Absent
}

// Lookup follows a path of object keys starting at v. Any missing step
// (including stepping through a non-object) yields Absent.
func Lookup(v Value, path []string) Value {
	cur := v
	for _, key := range path {
		obj, ok := cur.(Object)
		if !ok {
			return Absent
		}
		cur = obj.Field(key)
	}
	return cur
}

// Equal reports strict deep equality: values of different kinds are never
// equal, numbers compare numerically, arrays and objects element-wise.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case absentValue, nullValue:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	case BigInt:
		return av.Int().Cmp(b.(BigInt).Int()) == 0
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv := b.(Object)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}
