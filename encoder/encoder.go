package encoder

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/danthegoodman1/idhash/dtype"
)

const (
	absent  byte = 0
	present byte = 1

	// canonicalNaN is the quiet NaN every NaN payload is folded into
	canonicalNaN uint64 = 0x7ff8000000000000
)

// AppendNull appends the null marker of kind k. It never collides with a
// non-null encoding of the same kind because the presence byte differs.
func AppendNull(dst []byte, k dtype.Kind) []byte {
	return append(dst, byte(k), absent)
}

// Append appends the canonical encoding of v, declared as t, to dst. A nil
// v encodes as the null marker of t's kind.
//
// Encodings are width and unit independent: every integer is written as an
// int64, every float as a float64 and every timestamp as a UTC instant, so
// logically equal values delivered under different physical types encode
// identically.
func Append(dst []byte, v any, t dtype.DataType) ([]byte, error) {
	if !t.Kind.Valid() {
		return dst, &dtype.UnsupportedTypeError{Tag: t.Tag, Kind: t.Kind}
	}
	if v == nil {
		return AppendNull(dst, t.Kind), nil
	}

	switch t.Kind {
	case dtype.KindInt:
		i, ok := toInt64(v)
		if !ok {
			return dst, &TypeMismatchError{Value: v, Type: t}
		}
		dst = append(dst, byte(t.Kind), present)
		return binary.BigEndian.AppendUint64(dst, uint64(i)), nil

	case dtype.KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return dst, &TypeMismatchError{Value: v, Type: t}
		}
		dst = append(dst, byte(t.Kind), present)
		return binary.BigEndian.AppendUint64(dst, floatBits(f)), nil

	case dtype.KindBool:
		b, ok := v.(bool)
		if !ok {
			return dst, &TypeMismatchError{Value: v, Type: t}
		}
		dst = append(dst, byte(t.Kind), present)
		if b {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil

	case dtype.KindString:
		var raw string
		switch s := v.(type) {
		case string:
			raw = s
		case []byte:
			raw = string(s)
		default:
			return dst, &TypeMismatchError{Value: v, Type: t}
		}
		dst = append(dst, byte(t.Kind), present)
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(raw)))
		return append(dst, raw...), nil

	case dtype.KindTimestamp:
		sec, nsec, ok := toInstant(v, t.Unit)
		if !ok {
			return dst, &TypeMismatchError{Value: v, Type: t}
		}
		dst = append(dst, byte(t.Kind), present)
		dst = binary.BigEndian.AppendUint64(dst, uint64(sec))
		return binary.BigEndian.AppendUint32(dst, uint32(nsec)), nil
	}

	// KindNull only holds nil, handled above
	return dst, &TypeMismatchError{Value: v, Type: t}
}

func floatBits(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return canonicalNaN
	case f == 0:
		// -0 == 0, drop the sign bit
		return 0
	}
	return math.Float64bits(f)
}

func toInt64(v any) (int64, bool) {
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
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	}
	return 0, false
}

// toInstant resolves v to seconds and nanoseconds since the Unix epoch in
// UTC. Integers are counts of unit, time.Time carries its own zone.
func toInstant(v any, unit dtype.TimeUnit) (int64, int32, bool) {
	if t, ok := v.(time.Time); ok {
		return t.Unix(), int32(t.Nanosecond()), true
	}
	ticks, ok := toInt64(v)
	if !ok {
		return 0, 0, false
	}
	per := unit.PerSecond()
	sec, rem := ticks/per, ticks%per
	if rem < 0 {
		sec--
		rem += per
	}
	return sec, int32(rem * (1_000_000_000 / per)), true
}
