package builtins

import (
	"math/big"
	"strings"
	"time"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// Argument and field accessors. Every failure is a type-coercion error naming
// the builtin, so a malformed input is never mistaken for a violated rule.

func argBigInt(fn string, i int, v value.Value) (*big.Int, error) {
	n, ok := value.ToBigInt(v)
	if !ok {
		return nil, mclErrors.TypeErrorf("%s: argument %d must be an integer (number, bigint or integer string), got %s", fn, i+1, describe(v))
	}
	return n, nil
}

func argTime(fn string, i int, v value.Value) (time.Time, error) {
	s, ok := v.(value.String)
	if !ok {
		return time.Time{}, mclErrors.TypeErrorf("%s: argument %d must be an ISO-8601 timestamp string, got %s", fn, i+1, describe(v))
	}
	t, ok := ParseTimestamp(string(s))
	if !ok {
		return time.Time{}, mclErrors.TypeErrorf("%s: argument %d is not an ISO-8601 timestamp: %q", fn, i+1, string(s))
	}
	return t, nil
}

func argNumber(fn string, i int, v value.Value) (float64, error) {
	f, ok := value.ToFloat(v)
	if !ok {
		if n, isInt := value.ToBigInt(v); isInt {
			f, _ = new(big.Float).SetInt(n).Float64()
			return f, nil
		}
		return 0, mclErrors.TypeErrorf("%s: argument %d must be a number, got %s", fn, i+1, describe(v))
	}
	return f, nil
}

func argString(fn string, i int, v value.Value) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", mclErrors.TypeErrorf("%s: argument %d must be a string, got %s", fn, i+1, describe(v))
	}
	return string(s), nil
}

func argArray(fn string, i int, v value.Value) (value.Array, error) {
	arr, ok := v.(value.Array)
	if !ok {
		return nil, mclErrors.TypeErrorf("%s: argument %d must be an array, got %s", fn, i+1, describe(v))
	}
	return arr, nil
}

func argObject(fn string, i int, v value.Value) (value.Object, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return nil, mclErrors.TypeErrorf("%s: argument %d must be an object, got %s", fn, i+1, describe(v))
	}
	return obj, nil
}

// elementObject returns arr[i] as an object.
func elementObject(fn string, arr value.Array, i int) (value.Object, error) {
	obj, ok := arr[i].(value.Object)
	if !ok {
		return nil, mclErrors.TypeErrorf("%s: element %d must be an object, got %s", fn, i, describe(arr[i]))
	}
	return obj, nil
}

func fieldBigInt(fn string, obj value.Object, key string) (*big.Int, error) {
	v := obj.Field(key)
	n, ok := value.ToBigInt(v)
	if !ok {
		return nil, mclErrors.TypeErrorf("%s: field %q must be an integer, got %s", fn, key, describe(v))
	}
	return n, nil
}

func fieldNumber(fn string, obj value.Object, key string) (float64, error) {
	v := obj.Field(key)
	if f, ok := value.ToFloat(v); ok {
		return f, nil
	}
	if n, ok := value.ToBigInt(v); ok {
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, nil
	}
	return 0, mclErrors.TypeErrorf("%s: field %q must be a number, got %s", fn, key, describe(v))
}

func fieldString(fn string, obj value.Object, key string) (string, error) {
	v := obj.Field(key)
	s, ok := v.(value.String)
	if !ok {
		return "", mclErrors.TypeErrorf("%s: field %q must be a string, got %s", fn, key, describe(v))
	}
	return string(s), nil
}

func fieldTime(fn string, obj value.Object, key string) (time.Time, error) {
	s, err := fieldString(fn, obj, key)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return time.Time{}, mclErrors.TypeErrorf("%s: field %q is not an ISO-8601 timestamp: %q", fn, key, s)
	}
	return t, nil
}

// optionalTime returns the parsed timestamp, or ok=false when the field is
// null or absent.
func optionalTime(fn string, obj value.Object, key string) (time.Time, bool, error) {
	if value.IsNullish(obj.Field(key)) {
		return time.Time{}, false, nil
	}
	t, err := fieldTime(fn, obj, key)
	return t, err == nil, err
}

func fieldArray(fn string, obj value.Object, key string) (value.Array, error) {
	v := obj.Field(key)
	arr, ok := v.(value.Array)
	if !ok {
		return nil, mclErrors.TypeErrorf("%s: field %q must be an array, got %s", fn, key, describe(v))
	}
	return arr, nil
}

// fieldStringSet reads an array of strings as a set.
func fieldStringSet(fn string, obj value.Object, key string) (map[string]bool, error) {
	arr, err := fieldArray(fn, obj, key)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(arr))
	for i, el := range arr {
		s, ok := el.(value.String)
		if !ok {
			return nil, mclErrors.TypeErrorf("%s: %s[%d] must be a string, got %s", fn, key, i, describe(el))
		}
		set[string(s)] = true
	}
	return set, nil
}

func isSubset(sub, super map[string]bool) bool {
	for k := range sub {
		if !super[k] {
			return false
		}
	}
	return true
}

// splitPath turns "a.b.c" into its segments.
func splitPath(fn string, v value.Value) ([]string, error) {
	s, err := argString(fn, 0, v)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, mclErrors.TypeErrorf("%s: field path must not be empty", fn)
	}
	return strings.Split(s, "."), nil
}

// describe renders a value's kind for error messages.
func describe(v value.Value) string {
	if v == nil {
		return string(value.KindAbsent)
	}
	return string(v.Kind())
}

func boolResult(b bool) (value.Value, error) {
	return value.Bool(b), nil
}
