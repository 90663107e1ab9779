package dtype

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		tag  string
		want DataType
	}{
		{"int16", DataType{Kind: KindInt}},
		{"int32", DataType{Kind: KindInt}},
		{"Int64", DataType{Kind: KindInt}},
		{"uint8", DataType{Kind: KindInt}},
		{"float16", DataType{Kind: KindFloat}},
		{"float64", DataType{Kind: KindFloat}},
		{"double", DataType{Kind: KindFloat}},
		{"bool", DataType{Kind: KindBool}},
		{"boolean", DataType{Kind: KindBool}},
		{"string", DataType{Kind: KindString}},
		{"object", DataType{Kind: KindString}},
		{"large_binary", DataType{Kind: KindString}},
		{"null", DataType{Kind: KindNull}},
		{"datetime64", DataType{Kind: KindTimestamp, Unit: Nanosecond}},
		{"datetime64[ns]", DataType{Kind: KindTimestamp, Unit: Nanosecond}},
		{"datetime64[s]", DataType{Kind: KindTimestamp, Unit: Second}},
		{"datetime64[ms, UTC]", DataType{Kind: KindTimestamp, Unit: Millisecond, TimeZone: "UTC"}},
		{"datetime64[ns, America/New_York]", DataType{Kind: KindTimestamp, Unit: Nanosecond, TimeZone: "America/New_York"}},
		{"timestamp[us]", DataType{Kind: KindTimestamp, Unit: Microsecond}},
		{"timestamp[s, tz=+01:00]", DataType{Kind: KindTimestamp, Unit: Second, TimeZone: "+01:00"}},
		{" timestamp[ms] ", DataType{Kind: KindTimestamp, Unit: Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := Parse(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Unit, got.Unit)
			assert.Equal(t, tt.want.TimeZone, got.TimeZone)
			assert.Equal(t, tt.tag, got.Tag)
		})
	}
}

func TestParseUnsupported(t *testing.T) {
	for _, tag := range []string{"", "uint64", "decimal128", "list<int64>", "datetime64[ps]", "timedelta64[ns]", "category"} {
		t.Run(tag, func(t *testing.T) {
			_, err := Parse(tag)
			var ute *UnsupportedTypeError
			require.True(t, errors.As(err, &ute), "expected UnsupportedTypeError, got %v", err)
			assert.Equal(t, tag, ute.Tag)
		})
	}
}

func TestTimestampTag(t *testing.T) {
	assert.Equal(t, "timestamp[ms]", Timestamp(Millisecond, "").String())
	assert.Equal(t, "timestamp[ns, tz=UTC]", Timestamp(Nanosecond, "UTC").String())

	rt, err := Parse(Timestamp(Microsecond, "Europe/Paris").String())
	require.NoError(t, err)
	assert.Equal(t, Microsecond, rt.Unit)
	assert.Equal(t, "Europe/Paris", rt.TimeZone)
}

func TestKind(t *testing.T) {
	assert.True(t, KindTimestamp.Valid())
	assert.False(t, KindInvalid.Valid())
	assert.False(t, Kind(42).Valid())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.Equal(t, int64(1_000), Millisecond.PerSecond())
	assert.Equal(t, int64(1), Second.PerSecond())
}
