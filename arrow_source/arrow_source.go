// Package arrow_source adapts Apache Arrow records to hasher batches.
package arrow_source

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
)

type (
	record struct {
		rec  arrow.Record
		cols []batch.Column
	}

	column struct {
		arr   arrow.Array
		dt    dtype.DataType
		value func(i int) any
	}

	// Reader streams the records of an array.RecordReader as batches. A
	// record is only valid until the next call to Next, so batches must be
	// hashed before advancing (IDHasher.WriteReader does).
	Reader struct {
		rr array.RecordReader
	}
)

var arrowUnits = map[arrow.TimeUnit]dtype.TimeUnit{
	arrow.Second:      dtype.Second,
	arrow.Millisecond: dtype.Millisecond,
	arrow.Microsecond: dtype.Microsecond,
	arrow.Nanosecond:  dtype.Nanosecond,
}

// DataTypeOf maps an Arrow type to the hasher's logical type.
func DataTypeOf(t arrow.DataType) (dtype.DataType, error) {
	switch t.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64, arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return dtype.DataType{Kind: dtype.KindInt, Tag: t.Name()}, nil
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return dtype.DataType{Kind: dtype.KindFloat, Tag: t.Name()}, nil
	case arrow.BOOL:
		return dtype.DataType{Kind: dtype.KindBool, Tag: t.Name()}, nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return dtype.DataType{Kind: dtype.KindString, Tag: t.Name()}, nil
	case arrow.NULL:
		return dtype.Null, nil
	case arrow.TIMESTAMP:
		ts := t.(*arrow.TimestampType)
		return dtype.Timestamp(arrowUnits[ts.Unit], ts.TimeZone), nil
	case arrow.DATE32:
		// values are converted to time.Time, the unit is unused
		return dtype.Timestamp(dtype.Second, ""), nil
	case arrow.DATE64:
		return dtype.Timestamp(dtype.Millisecond, ""), nil
	}
	return dtype.DataType{}, &dtype.UnsupportedTypeError{Tag: t.String()}
}

// SchemaFields returns the field names and type tags of an Arrow schema, in
// the form hasher.New takes them.
func SchemaFields(s *arrow.Schema) (names, tags []string, err error) {
	for _, f := range s.Fields() {
		dt, err := DataTypeOf(f.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		names = append(names, f.Name)
		tags = append(tags, dt.String())
	}
	return names, tags, nil
}

// FromRecord wraps rec as a batch. rec is borrowed, not retained.
func FromRecord(rec arrow.Record) (batch.Batch, error) {
	r := &record{rec: rec, cols: make([]batch.Column, rec.NumCols())}
	for i := range r.cols {
		col, err := newColumn(rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", rec.ColumnName(i), err)
		}
		r.cols[i] = col
	}
	return r, nil
}

func (r *record) NumRows() int { return int(r.rec.NumRows()) }
func (r *record) NumCols() int { return len(r.cols) }
func (r *record) Column(i int) batch.Column { return r.cols[i] }

func newColumn(arr arrow.Array) (*column, error) {
	dt, err := DataTypeOf(arr.DataType())
	if err != nil {
		return nil, err
	}
	c := &column{arr: arr, dt: dt}
	switch a := arr.(type) {
	case *array.Int8:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Int16:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Int32:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Int64:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Uint8:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Uint16:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Uint32:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Float16:
		c.value = func(i int) any { return a.Value(i).Float32() }
	case *array.Float32:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Float64:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Boolean:
		c.value = func(i int) any { return a.Value(i) }
	case *array.String:
		c.value = func(i int) any { return a.Value(i) }
	case *array.LargeString:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Binary:
		c.value = func(i int) any { return a.Value(i) }
	case *array.LargeBinary:
		c.value = func(i int) any { return a.Value(i) }
	case *array.Timestamp:
		c.value = func(i int) any { return int64(a.Value(i)) }
	case *array.Date32:
		c.value = func(i int) any { return time.Unix(int64(a.Value(i))*86400, 0).UTC() }
	case *array.Date64:
		c.value = func(i int) any { return int64(a.Value(i)) }
	case *array.Null:
		c.value = func(int) any { return nil }
	default:
		return nil, &dtype.UnsupportedTypeError{Tag: arr.DataType().String()}
	}
	return c, nil
}

func (c *column) DataType() dtype.DataType { return c.dt }
func (c *column) Len() int { return c.arr.Len() }

func (c *column) Value(i int) any {
	if c.arr.IsNull(i) {
		return nil
	}
	return c.value(i)
}

func NewReader(rr array.RecordReader) *Reader {
	return &Reader{rr: rr}
}

func (r *Reader) Next() (batch.Batch, error) {
	if !r.rr.Next() {
		if err := r.rr.Err(); err != nil {
			return nil, fmt.Errorf("error in RecordReader.Next: %w", err)
		}
		return nil, io.EOF
	}
	return FromRecord(r.rr.Record())
}
