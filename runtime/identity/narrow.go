package identity

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ResultType describes the Go type a caller wants a scalar converted to.
type ResultType int

const (
	Any ResultType = iota
	Int16
	Int32
	Int64
	Int
	Float64
	String
	Bool
	Bytes
	Time
)

// ResultTypeOf infers the descriptor for T. Types without an entry map to Any.
func ResultTypeOf[T any]() ResultType {
	var zero T
	switch any(zero).(type) {
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case int:
		return Int
	case float64:
		return Float64
	case string:
		return String
	case bool:
		return Bool
	case []byte:
		return Bytes
	case time.Time:
		return Time
	default:
		return Any
	}
}

var narrowers = map[ResultType]func(any) (any, bool){
	Int16: func(v any) (any, bool) {
		n, ok := toInt64(v)
		if !ok || n < math.MinInt16 || n > math.MaxInt16 {
			return nil, false
		}
		return int16(n), true
	},
	Int32: func(v any) (any, bool) {
		n, ok := toInt64(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, false
		}
		return int32(n), true
	},
	Int64: func(v any) (any, bool) {
		n, ok := toInt64(v)
		if !ok {
			return nil, false
		}
		return n, true
	},
	Int: func(v any) (any, bool) {
		n, ok := toInt64(v)
		if !ok || n < math.MinInt || n > math.MaxInt {
			return nil, false
		}
		return int(n), true
	},
	Float64: func(v any) (any, bool) {
		f, ok := toFloat64(v)
		if !ok {
			return nil, false
		}
		return f, true
	},
	String: func(v any) (any, bool) {
		switch s := v.(type) {
		case string:
			return s, true
		case []byte:
			return string(s), true
		}
		return nil, false
	},
	Bool: func(v any) (any, bool) {
		switch b := v.(type) {
		case bool:
			return b, true
		case int64:
			if b == 0 || b == 1 {
				return b == 1, true
			}
		}
		return nil, false
	},
	Bytes: func(v any) (any, bool) {
		switch b := v.(type) {
		case []byte:
			return b, true
		case string:
			return []byte(b), true
		}
		return nil, false
	},
	Time: func(v any) (any, bool) {
		t, ok := v.(time.Time)
		return t, ok
	},
}

// Narrow converts v to the type described by rt. It reports false when v is
// nil, overflows the target or has an incompatible type; the caller then
// falls back to the zero value.
func Narrow(v any, rt ResultType) (any, bool) {
	if v == nil {
		return nil, false
	}
	fn, ok := narrowers[rt]
	if !ok {
		return v, true
	}
	return fn(v)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case []byte:
		return parseInt64(string(n))
	case string:
		return parseInt64(n)
	default:
		return 0, false
	}
}

// floatToInt64 accepts integral values only; identity columns never carry a
// fractional part.
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseInt64 parses integer and decimal text such as "42" or "42.000".
func parseInt64(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt64(f)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
