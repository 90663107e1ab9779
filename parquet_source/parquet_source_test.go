package parquet_source

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/encoder"
	"github.com/danthegoodman1/idhash/hasher"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

var (
	names = []string{"a", "b", "c", "d"}
	tags  = []string{"datetime64[ms]", "int64", "string", "bool"}
	rows  = []map[string]any{
		{"a": time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), "b": 0, "c": "0", "d": true},
		{"a": time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), "b": 1, "c": "1", "d": false},
		{"a": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), "b": 3, "c": "0", "d": nil},
	}
)

func writeFile(t *testing.T, schema string, rows []map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	pw, err := writer.NewJSONWriterFromWriter(schema, f, 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			t.Fatal("error in json.Marshal:", err)
		}
		if err = pw.Write(string(b)); err != nil {
			t.Fatal(err)
		}
	}
	if err = pw.WriteStop(); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFixture(t *testing.T) string {
	t.Helper()
	schema, err := JSONSchema(names, tags)
	if err != nil {
		t.Fatal(err)
	}
	return writeFile(t, schema, rows)
}

func hashFile(t *testing.T, path string, batchRows int) hasher.Fingerprint {
	t.Helper()
	r, err := OpenLocal(path, batchRows)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	h, err := hasher.New(r.Names(), r.Tags())
	if err != nil {
		t.Fatal(err)
	}
	n, err := h.WriteReader(r, hasher.Add)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("hashed %d rows, expected %d", n, len(rows))
	}
	return h.Finalize()
}

func TestJSONSchema(t *testing.T) {
	schema, err := JSONSchema([]string{"a", "b"}, []string{"int64", "string"})
	if err != nil {
		t.Fatal(err)
	}
	if schema != `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[{"Tag":"type=INT64, name=a, repetitiontype=OPTIONAL"},{"Tag":"type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, name=b, repetitiontype=OPTIONAL"}]}` {
		t.Log(schema)
		t.Fatal("got incorrect schema string")
	}

	_, err = JSONSchema([]string{"a"}, []string{"datetime64[ns]"})
	var ute *dtype.UnsupportedTypeError
	if !errors.As(err, &ute) {
		t.Fatal("expected UnsupportedTypeError, got", err)
	}
	if _, err = JSONSchema([]string{"a"}, nil); err == nil {
		t.Fatal("expected a length error")
	}
}

func TestInferSchema(t *testing.T) {
	r, err := OpenLocal(writeFixture(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := r.Names()
	if len(got) != len(names) {
		t.Fatalf("got columns %v", got)
	}
	for i := range names {
		if got[i] != names[i] {
			t.Fatalf("column %d: got %q expected %q", i, got[i], names[i])
		}
	}
	for i, tag := range r.Tags() {
		dt, err := dtype.Parse(tag)
		if err != nil {
			t.Fatal(err)
		}
		if want := dtype.MustParse(tags[i]); dt.Kind != want.Kind {
			t.Fatalf("column %d: got kind %s expected %s", i, dt.Kind, want.Kind)
		}
	}
	if r.types[0].Unit != dtype.Millisecond {
		t.Fatal("expected a millisecond timestamp, got", r.types[0])
	}
}

func TestMatchesInMemoryBatches(t *testing.T) {
	path := writeFixture(t)

	mem, err := batch.NewRecord(
		batch.NewValues(dtype.MustParse("datetime64[ns]"),
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)),
		batch.NewValues(dtype.Int64, int64(3), int64(0), int64(1)),
		batch.NewValues(dtype.String, "0", "0", "1"),
		batch.NewValues(dtype.Bool, nil, true, false),
	)
	if err != nil {
		t.Fatal(err)
	}
	want, err := hasher.IDHash([]batch.Batch{mem}, names, []string{"datetime64[ns]", "int64", "object", "bool"})
	if err != nil {
		t.Fatal(err)
	}

	if got := hashFile(t, path, 0); got != want {
		t.Fatalf("got %s expected %s", got, want)
	}
	if got := hashFile(t, path, 1); got != want {
		t.Fatal("one row batches should hash the same")
	}
}

func TestReaderEOF(t *testing.T) {
	r, err := OpenLocal(writeFixture(t), 2)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var sizes []int
	for {
		b, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, b.NumRows())
	}
	if len(sizes) != 2 || sizes[0] != 2 || sizes[1] != 1 {
		t.Fatal("unexpected batch sizes", sizes)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatal("expected io.EOF after drain, got", err)
	}
}

func TestNestedUnsupported(t *testing.T) {
	schema := `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[{"Tag":"type=DOUBLE, name=colB, repetitiontype=OPTIONAL"},{"Tag":"type=LIST, name=colC, repetitiontype=OPTIONAL","Fields":[{"Tag":"type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, name=Element, repetitiontype=OPTIONAL"}]}]}`
	path := writeFile(t, schema, []map[string]any{{"colB": 1.2, "colC": []any{"hey"}}})

	_, err := OpenLocal(path, 0)
	var ute *dtype.UnsupportedTypeError
	if !errors.As(err, &ute) {
		t.Fatal("expected UnsupportedTypeError, got", err)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := OpenLocal(filepath.Join(t.TempDir(), "nope.parquet"), 0); err == nil {
		t.Fatal("expected an error")
	}
}

func TestUnsignedMatchesInMemory(t *testing.T) {
	schema := `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[{"Tag":"type=INT32, convertedtype=UINT_32, name=u, repetitiontype=OPTIONAL"}]}`
	path := writeFile(t, schema, []map[string]any{{"u": 3000000000}, {"u": 7}})

	r, err := OpenLocal(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if tags := r.Tags(); len(tags) != 1 || tags[0] != "uint32" {
		t.Fatal("expected a uint32 column, got", tags)
	}
	b, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Column(0).Value(0); got != uint32(3000000000) {
		t.Fatalf("read back %#v", got)
	}

	mem, err := batch.NewRecord(batch.NewValues(dtype.MustParse("uint32"), uint32(7), uint32(3000000000)))
	if err != nil {
		t.Fatal(err)
	}
	want, err := hasher.IDHash([]batch.Batch{mem}, []string{"u"}, []string{"uint32"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := hasher.IDHash([]batch.Batch{b}, r.Names(), r.Tags())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %s expected %s", got, want)
	}
}

func TestUint64AboveMaxInt64Fails(t *testing.T) {
	dt, conv, err := columnType(&parquet.SchemaElement{
		Name:          "u",
		Type:          parquet.TypePtr(parquet.Type_INT64),
		ConvertedType: parquet.ConvertedTypePtr(parquet.ConvertedType_UINT_64),
	})
	if err != nil {
		t.Fatal(err)
	}
	v := conv(reflect.ValueOf(int64(-1)))
	if v != uint64(math.MaxUint64) {
		t.Fatalf("expected MaxUint64, got %#v", v)
	}
	_, err = encoder.Append(nil, v, dt)
	var tme *encoder.TypeMismatchError
	if !errors.As(err, &tme) {
		t.Fatal("expected TypeMismatchError, got", err)
	}
}

func TestDecimalUnsupported(t *testing.T) {
	for _, el := range []*parquet.SchemaElement{
		{Name: "d", Type: parquet.TypePtr(parquet.Type_INT32), ConvertedType: parquet.ConvertedTypePtr(parquet.ConvertedType_DECIMAL)},
		{Name: "d", Type: parquet.TypePtr(parquet.Type_BYTE_ARRAY), ConvertedType: parquet.ConvertedTypePtr(parquet.ConvertedType_DECIMAL)},
	} {
		_, _, err := columnType(el)
		var ute *dtype.UnsupportedTypeError
		if !errors.As(err, &ute) {
			t.Fatal("expected UnsupportedTypeError, got", err)
		}
	}
}
