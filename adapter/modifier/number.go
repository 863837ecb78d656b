package modifier

import (
	"math"
	"math/big"
)

// asNumber converts any built-in number to a big.Float.
func asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		if math.IsNaN(n) {
			return nil, false
		}
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}

// asInt64 converts integer types to int64. Floats are rejected.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// arithmetic applies op to field and arg. Integers stay integers, keeping
// int fields as int; any float operand makes the result a float64.
func arithmetic(field, arg any, intOp func(a, b int64) int64, floatOp func(a, b *big.Float) *big.Float) any {
	a, aInt := asInt64(field)
	b, bInt := asInt64(arg)
	if aInt && bInt {
		res := intOp(a, b)
		if _, ok := field.(int); ok {
			return int(res)
		}
		return res
	}
	x, _ := asNumber(field)
	y, _ := asNumber(arg)
	res, _ := floatOp(x, y).Float64()
	return res
}

func add(field, arg any) any {
	return arithmetic(field, arg,
		func(a, b int64) int64 { return a + b },
		func(a, b *big.Float) *big.Float { return new(big.Float).Add(a, b) },
	)
}

func mul(field, arg any) any {
	return arithmetic(field, arg,
		func(a, b int64) int64 { return a * b },
		func(a, b *big.Float) *big.Float { return new(big.Float).Mul(a, b) },
	)
}
