package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// maxSafeInteger is 2^53, the largest magnitude a float64 holds without
// losing integer precision. Integral JSON numbers beyond it decode to BigInt.
const maxSafeInteger = 1 << 53

// Decode reads a single JSON document from r.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON document: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode JSON document: trailing data after value")
	}

	return FromGo(raw)
}

// DecodeJSON decodes a JSON document held in memory.
func DecodeJSON(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

// FromGo converts decoded JSON (or equivalent native Go data) into a Value.
func FromGo(v interface{}) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return fromNumberLiteral(string(x))
	case float64:
		return Number(x), nil
	case float32:
		return Number(x), nil
	case int:
		return fromInt64(int64(x)), nil
	case int32:
		return fromInt64(int64(x)), nil
	case int64:
		return fromInt64(x), nil
	case uint64:
		return fromBig(new(big.Int).SetUint64(x)), nil
	case *big.Int:
		if x == nil {
			return Null, nil
		}
		return NewBigInt(x), nil
	case big.Int:
		return NewBigInt(&x), nil
	case []interface{}:
		arr := make(Array, len(x))
		for i, el := range x {
			conv, err := FromGo(el)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case []string:
		arr := make(Array, len(x))
		for i, el := range x {
			arr[i] = String(el)
		}
		return arr, nil
	case map[string]interface{}:
		obj := make(Object, len(x))
		for k, el := range x {
			conv, err := FromGo(el)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ParseNumber converts the text of a numeric literal into a Number, or into a
// BigInt when it is an integer too large to be represented exactly.
func ParseNumber(text string) (Value, error) {
	return fromNumberLiteral(text)
}

func fromNumberLiteral(text string) (Value, error) {
	if !strings.ContainsAny(text, ".eE") {
		i, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", text)
		}
		return fromBig(i), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", text, err)
	}
	// 1e16 and 10000000000000000.0 must decode like 10000000000000000.
	if f == math.Trunc(f) && math.Abs(f) > maxSafeInteger {
		if r, ok := new(big.Rat).SetString(text); ok && r.IsInt() {
			return fromBig(r.Num()), nil
		}
	}
	return Number(f), nil
}

func fromInt64(n int64) Value {
	if n > maxSafeInteger || n < -maxSafeInteger {
		return BigIntFromInt64(n)
	}
	return Number(float64(n))
}

func fromBig(i *big.Int) Value {
	if i.IsInt64() {
		return fromInt64(i.Int64())
	}
	return NewBigInt(i)
}

// ToGo converts a Value back into plain Go data suitable for encoding/json.
// BigInt values become json.Number so they are written without quotes or
// precision loss; Absent becomes nil.
func ToGo(v Value) interface{} {
	switch x := v.(type) {
	case nil, absentValue, nullValue:
		return nil
	case Bool:
		return bool(x)
	case Number:
		return float64(x)
	case BigInt:
		return json.Number(x.String())
	case String:
		return string(x)
	case Array:
		out := make([]interface{}, len(x))
		for i, el := range x {
			out[i] = ToGo(el)
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(x))
		for k, el := range x {
			out[k] = ToGo(el)
		}
		return out
	}
	return nil
}

// Canonical returns a deterministic JSON encoding of v: object keys sorted,
// no insignificant whitespace, BigInt written as a bare integer. Absent
// encodes as "undefined" so it never collides with null.
func Canonical(v Value) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil, absentValue:
		sb.WriteString("undefined")
	case nullValue:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case Number:
		sb.WriteString(FormatNumber(float64(x)))
	case BigInt:
		sb.WriteString(x.String())
	case String:
		b, _ := json.Marshal(string(x))
		sb.Write(b)
	case Array:
		sb.WriteByte('[')
		for i, el := range x {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, el)
		}
		sb.WriteByte(']')
	case Object:
		sb.WriteByte('{')
		for i, k := range x.Keys() {
			if i > 0 {
				sb.WriteByte(',')
			}
			b, _ := json.Marshal(k)
			sb.Write(b)
			sb.WriteByte(':')
			writeCanonical(sb, x[k])
		}
		sb.WriteByte('}')
	}
}

// FormatNumber formats a float the way JSON serializers commonly do:
// integral values without a fractional part.
func FormatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "null"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
