package json_rows

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/encoder"
	"github.com/danthegoodman1/idhash/hasher"
)

func mustSchema(t *testing.T, names, tags []string) *hasher.Schema {
	t.Helper()
	s, err := hasher.NewSchema(names, tags)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDecode(t *testing.T) {
	schema := mustSchema(t, []string{"a", "b", "c", "d"}, []string{"datetime64[ns]", "int64", "object", "bool"})
	rec, err := Decode([]map[string]any{
		{"a": "2021-01-01", "b": 0.0, "c": "0", "d": true},
		{"a": "2022-02-01T00:00:00.000Z", "b": 1.0, "c": "1", "d": false},
		{"b": 3.0, "c": "0"},
	}, schema)
	if err != nil {
		t.Fatal(err)
	}

	if rec.NumRows() != 3 || rec.NumCols() != 4 {
		t.Fatalf("got %d rows %d cols", rec.NumRows(), rec.NumCols())
	}
	if got := rec.Column(0).Value(0).(time.Time); !got.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("mismatched date", got)
	}
	if got := rec.Column(1).Value(2); got != int64(3) {
		t.Fatalf("expected int64 3, got %#v", got)
	}
	if rec.Column(0).Value(2) != nil || rec.Column(3).Value(2) != nil {
		t.Fatal("missing keys should be null")
	}
}

func TestDecodeMatchesTypedBatch(t *testing.T) {
	schema := mustSchema(t, []string{"a", "c", "d"}, []string{"int64", "string", "bool"})
	rec, err := DecodeNDJSON(`{"a": 0, "c": "0", "d": true}
{"a": 1, "c": "1", "d": false}

{"a": 3, "c": "0", "d": true}
`, schema)
	if err != nil {
		t.Fatal(err)
	}

	typed, err := batch.NewRecord(
		batch.NewValues(dtype.Int64, int64(3), int64(1), int64(0)),
		batch.NewValues(dtype.String, "0", "1", "0"),
		batch.NewValues(dtype.Bool, true, false, true),
	)
	if err != nil {
		t.Fatal(err)
	}

	fromJSON, err := hasher.IDHash([]batch.Batch{rec}, schema.Names(), []string{"int64", "string", "bool"})
	if err != nil {
		t.Fatal(err)
	}
	fromTyped, err := hasher.IDHash([]batch.Batch{typed}, schema.Names(), []string{"int64", "string", "bool"})
	if err != nil {
		t.Fatal(err)
	}
	if fromJSON != fromTyped {
		t.Fatal("JSON rows and typed rows should hash the same")
	}
}

func TestNDJSONKeepsLargeInts(t *testing.T) {
	schema := mustSchema(t, []string{"id"}, []string{"int64"})
	rec, err := DecodeNDJSON(`{"id": 9007199254740993}`, schema)
	if err != nil {
		t.Fatal(err)
	}
	if got := rec.Column(0).Value(0); got != int64(9007199254740993) {
		t.Fatalf("lost precision: %#v", got)
	}
}

func TestNDJSONNotObject(t *testing.T) {
	schema := mustSchema(t, []string{"id"}, []string{"int64"})
	_, err := DecodeNDJSON(`[1, 2]`, schema)
	if !errors.Is(err, ErrNotObject) {
		t.Fatal("expected ErrNotObject, got", err)
	}
	_, err = DecodeNDJSON(`{"id": `, schema)
	if err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestUnknownKey(t *testing.T) {
	schema := mustSchema(t, []string{"a"}, []string{"int64"})
	_, err := Decode([]map[string]any{{"a": 1.0, "zzz": "x"}}, schema)
	var sme *hasher.SchemaMismatchError
	if !errors.As(err, &sme) {
		t.Fatal("expected SchemaMismatchError, got", err)
	}
	if sme.Field != "zzz" {
		t.Fatal("wrong field", sme.Field)
	}
}

func TestCoerce(t *testing.T) {
	ms := dtype.MustParse("datetime64[ms]")
	tokyo := dtype.MustParse("datetime64[ns, Asia/Tokyo]")
	offset := dtype.MustParse("timestamp[s, tz=+01:00]")

	tests := []struct {
		in   any
		t    dtype.DataType
		want any
	}{
		{json.Number("12"), dtype.Int64, int64(12)},
		{12.0, dtype.Int64, int64(12)},
		{json.Number("1.5"), dtype.Float, 1.5},
		{1.5, dtype.Float, 1.5},
		{true, dtype.Bool, true},
		{"x", dtype.String, "x"},
		{json.Number("1672406408279"), ms, int64(1672406408279)},
		{1672406408279.0, ms, int64(1672406408279)},
		{"2022-01-24T00:00:00.000Z", ms, time.Date(2022, 1, 24, 0, 0, 0, 0, time.UTC)},
		{"2022-01-24T09:00:00+09:00", ms, time.Date(2022, 1, 24, 0, 0, 0, 0, time.UTC)},
		{"2022-01-24 01:00:00", offset, time.Date(2022, 1, 24, 0, 0, 0, 0, time.UTC)},
		{nil, dtype.Int64, nil},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.in, tt.t)
		if err != nil {
			t.Fatalf("%v as %s: %s", tt.in, tt.t, err)
		}
		if want, ok := tt.want.(time.Time); ok {
			if !got.(time.Time).Equal(want) {
				t.Fatalf("%v as %s: got %v want %v", tt.in, tt.t, got, want)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("%v as %s: got %#v want %#v", tt.in, tt.t, got, tt.want)
		}
	}

	// Zone-less strings are read in the column's zone when it can be loaded
	if got, err := Coerce("2022-01-24 09:00:00", tokyo); err == nil {
		if _, err := time.LoadLocation("Asia/Tokyo"); err == nil && !got.(time.Time).Equal(time.Date(2022, 1, 24, 0, 0, 0, 0, time.UTC)) {
			t.Fatal("expected Tokyo wall clock, got", got)
		}
	} else {
		t.Fatal(err)
	}
}

func TestCoerceMismatch(t *testing.T) {
	for _, tt := range []struct {
		in any
		t  dtype.DataType
	}{
		{1.5, dtype.Int64},
		{"1", dtype.Int64},
		{"yes", dtype.Bool},
		{1.0, dtype.String},
		{"not a date", dtype.MustParse("datetime64[ns]")},
		{"x", dtype.Null},
	} {
		_, err := Coerce(tt.in, tt.t)
		var tme *encoder.TypeMismatchError
		if !errors.As(err, &tme) {
			t.Fatalf("%v as %s: expected TypeMismatchError, got %v", tt.in, tt.t, err)
		}
	}
}

func TestNDJSONTrailingData(t *testing.T) {
	schema := mustSchema(t, []string{"a"}, []string{"int64"})
	for _, s := range []string{
		`{"a":1}{"a":2}`,
		"{\"a\":1}\n{\"a\":3} garbage",
		`{"a":1}}`,
	} {
		_, err := DecodeNDJSON(s, schema)
		if !errors.Is(err, ErrTrailing) {
			t.Fatalf("%q: expected ErrTrailing, got %v", s, err)
		}
	}

	rec, err := DecodeNDJSON("{\"a\":1}  \n{\"a\":2}\t", schema)
	if err != nil {
		t.Fatal(err)
	}
	if rec.NumRows() != 2 {
		t.Fatal("expected 2 rows, got", rec.NumRows())
	}
}
