package value

import (
	"math"
	"math/big"
	"regexp"
)

// integerString matches base-10 integers without leading zeros ("0" is allowed,
// "-0" and "007" are not).
var integerString = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)

// ToBigInt converts v to an arbitrary-precision integer. It accepts finite
// integral numbers, BigInt values and integer-only numeric strings. Decimal
// strings, fractional numbers and every other kind are rejected.
func ToBigInt(v Value) (*big.Int, bool) {
	switch x := v.(type) {
	case BigInt:
		return x.Int(), true
	case Number:
		f := float64(x)
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
			return nil, false
		}
		i, _ := big.NewFloat(f).Int(nil)
		return i, true
	case String:
		s := string(x)
		if !integerString.MatchString(s) {
			return nil, false
		}
		i, ok := new(big.Int).SetString(s, 10)
		return i, ok
	}
	return nil, false
}

// IsBigIntCoercible reports whether ToBigInt would succeed.
func IsBigIntCoercible(v Value) bool {
	_, ok := ToBigInt(v)
	return ok
}

// ToFloat converts numeric values (Number, BigInt) to float64.
func ToFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		return float64(x), true
	case BigInt:
		f, _ := new(big.Float).SetInt(x.Int()).Float64()
		return f, true
	}
	return 0, false
}
