package builtins

import (
	"math/big"
	"unicode/utf8"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

func length(_ *Call, args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case value.Array:
		return value.Number(len(v)), nil
	case value.String:
		return value.Number(utf8.RuneCountInString(string(v))), nil
	case value.Object:
		return value.Number(len(v)), nil
	}
	return nil, mclErrors.TypeErrorf("len: argument 1 must be an array, string or object, got %s", describe(args[0]))
}

// typeOf reports the runtime kind. Arrays, null and absent fields are
// distinct results rather than collapsing into "object".
func typeOf(_ *Call, args []value.Value) (value.Value, error) {
	return value.String(describe(args[0])), nil
}

func isBigIntCoercible(_ *Call, args []value.Value) (value.Value, error) {
	return boolResult(value.IsBigIntCoercible(args[0]))
}

func objectKeysSubset(_ *Call, args []value.Value) (value.Value, error) {
	obj, err := argObject("object_keys_subset", 0, args[0])
	if err != nil {
		return nil, err
	}
	allowed, err := argArray("object_keys_subset", 1, args[1])
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(allowed))
	for i, el := range allowed {
		s, ok := el.(value.String)
		if !ok {
			return nil, mclErrors.TypeErrorf("object_keys_subset: allowed[%d] must be a string, got %s", i, describe(el))
		}
		set[string(s)] = true
	}

	for key := range obj {
		if !set[key] {
			return boolResult(false)
		}
	}
	return boolResult(true)
}

// uniqueValues compares elements by their canonical JSON encoding.
func uniqueValues(_ *Call, args []value.Value) (value.Value, error) {
	arr, err := argArray("unique_values", 0, args[0])
	if err != nil {
		return nil, err
	}

	field := ""
	if len(args) == 2 {
		if field, err = argString("unique_values", 1, args[1]); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(arr))
	for i, el := range arr {
		if field != "" {
			obj, err := elementObject("unique_values", arr, i)
			if err != nil {
				return nil, err
			}
			el = obj.Field(field)
		}
		key := value.Canonical(el)
		if seen[key] {
			return boolResult(false)
		}
		seen[key] = true
	}
	return boolResult(true)
}

// changed reports whether the value at path differs between the current
// document and the previous snapshot. Without a snapshot nothing changed.
func changed(call *Call, args []value.Value) (value.Value, error) {
	path, err := splitPath("changed", args[0])
	if err != nil {
		return nil, err
	}
	prev := snapshot(call)
	if prev.Kind() == value.KindAbsent {
		return boolResult(false)
	}
	return boolResult(!value.Equal(value.Lookup(current(call), path), value.Lookup(prev, path)))
}

func previous(call *Call, args []value.Value) (value.Value, error) {
	path, err := splitPath("previous", args[0])
	if err != nil {
		return nil, err
	}
	return value.Lookup(snapshot(call), path), nil
}

// delta is the exact difference current - previous at path.
func delta(call *Call, args []value.Value) (value.Value, error) {
	path, err := splitPath("delta", args[0])
	if err != nil {
		return nil, err
	}

	cur := value.Lookup(current(call), path)
	prev := value.Lookup(snapshot(call), path)

	a, ok := value.ToBigInt(cur)
	if !ok {
		return nil, mclErrors.TypeErrorf("delta: current value at %q must be an integer, got %s", args[0], describe(cur))
	}
	b, ok := value.ToBigInt(prev)
	if !ok {
		return nil, mclErrors.TypeErrorf("delta: previous value at %q must be an integer, got %s", args[0], describe(prev))
	}
	return value.NewBigInt(new(big.Int).Sub(a, b)), nil
}

func current(call *Call) value.Value {
	if call == nil || call.Current == nil {
		return value.Absent
	}
	return call.Current
}

func snapshot(call *Call) value.Value {
	if call == nil || call.Previous == nil {
		return value.Absent
	}
	return call.Previous
}
