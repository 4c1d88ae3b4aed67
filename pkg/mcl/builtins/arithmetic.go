package builtins

import (
	"math/big"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// bigintSum adds array elements exactly. With a second argument, it sums
// element[field] of each object element instead.
func bigintSum(_ *Call, args []value.Value) (value.Value, error) {
	arr, err := argArray("bigint_sum", 0, args[0])
	if err != nil {
		return nil, err
	}

	field := ""
	if len(args) == 2 {
		if field, err = argString("bigint_sum", 1, args[1]); err != nil {
			return nil, err
		}
	}

	total := new(big.Int)
	for i, el := range arr {
		var n *big.Int
		if field == "" {
			var ok bool
			if n, ok = value.ToBigInt(el); !ok {
				return nil, mclErrors.TypeErrorf("bigint_sum: element %d must be an integer (number, bigint or integer string), got %s", i, describe(el))
			}
		} else {
			obj, err := elementObject("bigint_sum", arr, i)
			if err != nil {
				return nil, err
			}
			if n, err = fieldBigInt("bigint_sum", obj, field); err != nil {
				return nil, err
			}
		}
		total.Add(total, n)
	}

	return value.NewBigInt(total), nil
}

func bigintAdd(_ *Call, args []value.Value) (value.Value, error) {
	a, b, err := bigintPair("bigint_add", args)
	if err != nil {
		return nil, err
	}
	return value.NewBigInt(new(big.Int).Add(a, b)), nil
}

func bigintSub(_ *Call, args []value.Value) (value.Value, error) {
	a, b, err := bigintPair("bigint_sub", args)
	if err != nil {
		return nil, err
	}
	return value.NewBigInt(new(big.Int).Sub(a, b)), nil
}

// bigintCompare builds a comparison builtin from a predicate on a.Cmp(b).
func bigintCompare(name string, pred func(int) bool) Func {
	return func(_ *Call, args []value.Value) (value.Value, error) {
		a, b, err := bigintPair(name, args)
		if err != nil {
			return nil, err
		}
		return value.Bool(pred(a.Cmp(b))), nil
	}
}

func bigintPair(fn string, args []value.Value) (*big.Int, *big.Int, error) {
	a, err := argBigInt(fn, 0, args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := argBigInt(fn, 1, args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// strictEqual is deep equality with no coercion between kinds.
func strictEqual(_ *Call, args []value.Value) (value.Value, error) {
	return value.Bool(value.Equal(args[0], args[1])), nil
}
