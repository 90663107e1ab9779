package dtype

import (
	"fmt"
	"regexp"
	"strings"
)

type (
	// Kind is the logical type of a column. The set is closed, every value
	// the hasher sees is normalized into one of these.
	Kind uint8

	// TimeUnit is the physical precision of a timestamp column.
	TimeUnit uint8

	DataType struct {
		Kind Kind
		// Unit and TimeZone are only meaningful for KindTimestamp
		Unit     TimeUnit
		TimeZone string
		// Tag is the declared type string, kept for error messages
		Tag string
	}
)

const (
	KindInvalid Kind = iota
	KindNull
	KindInt
	KindFloat
	KindBool
	KindString
	KindTimestamp
)

const (
	Second TimeUnit = iota
	Millisecond
	Microsecond
	Nanosecond
)

var (
	Null   = DataType{Kind: KindNull, Tag: "null"}
	Int64  = DataType{Kind: KindInt, Tag: "int64"}
	Float  = DataType{Kind: KindFloat, Tag: "float64"}
	Bool   = DataType{Kind: KindBool, Tag: "bool"}
	String = DataType{Kind: KindString, Tag: "string"}

	kindNames = map[Kind]string{
		KindNull:      "null",
		KindInt:       "int",
		KindFloat:     "float",
		KindBool:      "bool",
		KindString:    "string",
		KindTimestamp: "timestamp",
	}

	unitNames = map[string]TimeUnit{
		"s":  Second,
		"ms": Millisecond,
		"us": Microsecond,
		"μs": Microsecond,
		"ns": Nanosecond,
	}

	// Tags maps every accepted plain tag to its kind. Timestamp tags are
	// parameterized and matched by timestampRe instead.
	Tags = map[string]Kind{
		"int8":         KindInt,
		"int16":        KindInt,
		"int32":        KindInt,
		"int64":        KindInt,
		"int":          KindInt,
		"uint8":        KindInt,
		"uint16":       KindInt,
		"uint32":       KindInt,
		"float16":      KindFloat,
		"halffloat":    KindFloat,
		"float32":      KindFloat,
		"float64":      KindFloat,
		"float":        KindFloat,
		"double":       KindFloat,
		"bool":         KindBool,
		"boolean":      KindBool,
		"string":       KindString,
		"str":          KindString,
		"object":       KindString,
		"utf8":         KindString,
		"large_string": KindString,
		"large_utf8":   KindString,
		"binary":       KindString,
		"large_binary": KindString,
		"bytes":        KindString,
		"null":         KindNull,
		"na":           KindNull,
	}

	// datetime64, datetime64[ns], datetime64[ns, UTC], timestamp[ms, tz=+01:00]
	timestampRe = regexp.MustCompile(`^(?:datetime64|timestamp)(?:\[\s*([a-zμ]+)\s*(?:,\s*(?:tz\s*=\s*)?([^\]]*?)\s*)?\])?$`)
)

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (u TimeUnit) String() string {
	switch u {
	case Second:
		return "s"
	case Millisecond:
		return "ms"
	case Microsecond:
		return "us"
	case Nanosecond:
		return "ns"
	}
	return fmt.Sprintf("unit(%d)", uint8(u))
}

// PerSecond returns how many ticks of u make up one second.
func (u TimeUnit) PerSecond() int64 {
	switch u {
	case Millisecond:
		return 1_000
	case Microsecond:
		return 1_000_000
	case Nanosecond:
		return 1_000_000_000
	default:
		return 1
	}
}

// Timestamp builds a timestamp type with the given unit and zone.
func Timestamp(unit TimeUnit, tz string) DataType {
	tag := "timestamp[" + unit.String()
	if tz != "" {
		tag += ", tz=" + tz
	}
	return DataType{Kind: KindTimestamp, Unit: unit, TimeZone: tz, Tag: tag + "]"}
}

func (t DataType) String() string {
	if t.Tag != "" {
		return t.Tag
	}
	if t.Kind == KindTimestamp {
		return Timestamp(t.Unit, t.TimeZone).Tag
	}
	return t.Kind.String()
}

// Parse normalizes a dataframe or columnar dtype string into a DataType.
func Parse(tag string) (DataType, error) {
	norm := strings.ToLower(strings.TrimSpace(tag))
	if kind, ok := Tags[norm]; ok {
		return DataType{Kind: kind, Tag: tag}, nil
	}

	m := timestampRe.FindStringSubmatch(norm)
	if m == nil {
		return DataType{}, &UnsupportedTypeError{Tag: tag}
	}
	dt := DataType{Kind: KindTimestamp, Unit: Nanosecond, Tag: tag}
	if m[1] != "" {
		unit, ok := unitNames[m[1]]
		if !ok {
			return DataType{}, &UnsupportedTypeError{Tag: tag}
		}
		dt.Unit = unit
	}
	if m[2] != "" {
		// Zone names are case sensitive, take them from the original tag
		dt.TimeZone = zoneFromTag(tag, m[2])
	}
	return dt, nil
}

// MustParse is Parse for tags known at compile time.
func MustParse(tag string) DataType {
	dt, err := Parse(tag)
	if err != nil {
		panic(err)
	}
	return dt
}

func zoneFromTag(tag, lowered string) string {
	idx := strings.Index(strings.ToLower(tag), lowered)
	if idx < 0 || idx+len(lowered) > len(tag) {
		return lowered
	}
	return tag[idx : idx+len(lowered)]
}
