package eval

import (
	"math"
	"math/big"
	"strings"

	"mercator-hq/covenant/pkg/mcl/ast"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// equal implements == for present values. A BigInt compares exactly against
// any integer-coercible value; everything else uses strict deep equality,
// so values of different kinds are simply unequal.
func equal(a, b value.Value) bool {
	_, aBig := a.(value.BigInt)
	_, bBig := b.(value.BigInt)
	if aBig || bBig {
		x, okA := value.ToBigInt(a)
		y, okB := value.ToBigInt(b)
		if okA && okB {
			return x.Cmp(y) == 0
		}
	}
	return value.Equal(a, b)
}

// compare orders two numbers, two strings, or a BigInt against a number or
// integer string. It returns -1, 0 or +1.
func compare(a, b value.Value) (int, error) {
	if as, ok := a.(value.String); ok {
		if bs, ok := b.(value.String); ok {
			return strings.Compare(string(as), string(bs)), nil
		}
	}

	_, aBig := a.(value.BigInt)
	_, bBig := b.(value.BigInt)
	if aBig || bBig {
		x, okA := exactNumber(a)
		y, okB := exactNumber(b)
		if okA && okB {
			return x.Cmp(y), nil
		}
		return 0, mismatch(a, b)
	}

	an, okA := a.(value.Number)
	bn, okB := b.(value.Number)
	if !okA || !okB {
		return 0, mismatch(a, b)
	}
	switch {
	case an < bn:
		return -1, nil
	case an > bn:
		return 1, nil
	}
	return 0, nil
}

// exactNumber converts a numeric operand for comparison against a BigInt.
// Integer strings are accepted on the non-BigInt side.
func exactNumber(v value.Value) (*big.Float, bool) {
	switch x := v.(type) {
	case value.BigInt:
		return new(big.Float).SetInt(x.Int()), true
	case value.Number:
		f := float64(x)
		if math.IsNaN(f) {
			return nil, false
		}
		return big.NewFloat(f), true
	case value.String:
		if i, ok := value.ToBigInt(x); ok {
			return new(big.Float).SetInt(i), true
		}
	}
	return nil, false
}

func mismatch(a, b value.Value) error {
	return mclErrors.TypeErrorf("Cannot order %s against %s; comparisons need two numbers or two strings", a.Kind(), b.Kind())
}

func ordered(op ast.Operator, c int) bool {
	switch op {
	case ast.OpLessThan:
		return c < 0
	case ast.OpGreaterThan:
		return c > 0
	case ast.OpLessEqual:
		return c <= 0
	case ast.OpGreaterEqual:
		return c >= 0
	}
	return false
}
