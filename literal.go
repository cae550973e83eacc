package goshape

import (
	"math"
	"math/big"
	"reflect"
	"strconv"
)

// scalar is a normalized literal payload.
type scalar struct {
	kind valueKind
	str  string
	num  float64
	b    bool
	big  *big.Int
}

// scalarOf normalizes v into a scalar. Numbers become float64 and bigints are
// copied so later mutation of the caller's *big.Int cannot leak into a schema.
func scalarOf(v any) (scalar, bool) {
	switch k := classify(v); k {
	case vkNull, vkUndefined:
		return scalar{kind: k}, true
	case vkString:
		if s, ok := v.(string); ok {
			return scalar{kind: k, str: s}, true
		}
		return scalar{kind: k, str: reflect.ValueOf(v).String()}, true
	case vkNumber:
		f, ok := numberOf(v)
		if !ok {
			return scalar{}, false
		}
		return scalar{kind: k, num: f}, true
	case vkBoolean:
		if b, ok := v.(bool); ok {
			return scalar{kind: k, b: b}, true
		}
		return scalar{kind: k, b: reflect.ValueOf(v).Bool()}, true
	case vkBigInt:
		switch t := v.(type) {
		case *big.Int:
			return scalar{kind: k, big: new(big.Int).Set(t)}, true
		case big.Int:
			return scalar{kind: k, big: new(big.Int).Set(&t)}, true
		}
	}
	return scalar{}, false
}

// sameValueZero compares two scalars: NaN equals NaN and +0 equals -0.
func sameValueZero(a, b scalar) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case vkString:
		return a.str == b.str
	case vkNumber:
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	case vkBoolean:
		return a.b == b.b
	case vkBigInt:
		return a.big.Cmp(b.big) == 0
	case vkNull, vkUndefined:
		return true
	default:
		return false
	}
}

// matchesScalar reports whether v equals lit without building a scalar for the
// common string/float64 cases.
func matchesScalar(v any, lit scalar) bool {
	switch t := v.(type) {
	case string:
		return lit.kind == vkString && lit.str == t
	case float64:
		if lit.kind != vkNumber {
			return false
		}
		if math.IsNaN(t) && math.IsNaN(lit.num) {
			return true
		}
		return lit.num == t
	}
	got, ok := scalarOf(v)
	if !ok {
		return false
	}
	return sameValueZero(got, lit)
}

func (s scalar) render() string {
	switch s.kind {
	case vkString:
		return strconv.Quote(s.str)
	case vkNumber:
		return strconv.FormatFloat(s.num, 'g', -1, 64)
	case vkBoolean:
		return strconv.FormatBool(s.b)
	case vkBigInt:
		return s.big.String() + "n"
	case vkNull:
		return "null"
	case vkUndefined:
		return "undefined"
	default:
		return "?"
	}
}

// value returns the literal as a Go value: string, float64, bool, *big.Int,
// nil, or Undefined.
func (s scalar) value() any {
	switch s.kind {
	case vkString:
		return s.str
	case vkNumber:
		return s.num
	case vkBoolean:
		return s.b
	case vkBigInt:
		return new(big.Int).Set(s.big)
	case vkUndefined:
		return Undefined
	default:
		return nil
	}
}
