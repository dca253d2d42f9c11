package utils

import (
	"encoding/json"
	"math"
)

// ToNumber converts numeric values to float64 using explicit type switching.
// The second result is false for anything that is not a number, including
// numeric strings: a counter stored as "3" is a schema problem, not a value.
func ToNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint8:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsNumber reports whether val is a Go numeric type.
func IsNumber(val any) bool {
	_, ok := ToNumber(val)
	return ok
}

// IsIntegral reports whether val is one of the integer types.
func IsIntegral(val any) bool {
	switch v := val.(type) {
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return true
	case json.Number:
		_, err := v.Int64()
		return err == nil
	default:
		return false
	}
}

// ToInt64 converts integer types to int64 without going through float64.
// Floats and uint values above math.MaxInt64 report false.
func ToInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// AddDelta returns cur + (next - prev). Integer operands are summed exactly
// as int64 so counters above 2^53 keep every digit; anything else falls back
// to float64. The second result is false when an operand is not a number.
func AddDelta(cur, prev, next any) (any, bool) {
	c, cok := ToInt64(cur)
	p, pok := ToInt64(prev)
	n, nok := ToInt64(next)
	if cok && pok && nok {
		return int(c + (n - p)), true
	}

	cf, cok := ToNumber(cur)
	pf, pok := ToNumber(prev)
	nf, nok := ToNumber(next)
	if !cok || !pok || !nok {
		return nil, false
	}
	return NumberResult(cf+(nf-pf), cur, prev, next), true
}

// ToInt converts val to int, truncating floats. Non-numbers yield 0.
func ToInt(val any) int {
	f, ok := ToNumber(val)
	if !ok {
		return 0
	}
	return int(f)
}

// NumberResult picks the representation for the result of arithmetic over
// operands: int when every operand is an integer type, float64 otherwise.
// Whole floats stay float64 so JSON documents keep their original shape.
func NumberResult(result float64, operands ...any) any {
	for _, op := range operands {
		if !IsIntegral(op) {
			return result
		}
	}
	return int(math.Round(result))
}
