// Package batch defines the columnar batch shape the hasher consumes, plus an
// in-memory implementation used by the JSON decoder and tests.
//
// Batches are delivery chunks only. Nothing about a batch boundary reaches
// the fingerprint.
package batch

import (
	"errors"
	"fmt"
	"io"

	"github.com/danthegoodman1/idhash/dtype"
)

type (
	// Column is one field's values within a batch. Value returns nil for a
	// null cell.
	Column interface {
		DataType() dtype.DataType
		Len() int
		Value(i int) any
	}

	Batch interface {
		NumRows() int
		NumCols() int
		Column(i int) Column
	}

	// Reader is a stream of batches. Next returns io.EOF once exhausted.
	Reader interface {
		Next() (Batch, error)
	}

	// Values is an in-memory column.
	Values struct {
		Type dtype.DataType
		Data []any
	}

	Record struct {
		cols []Column
		rows int
	}

	sliced struct {
		Column
		offset, length int
	}

	SliceReader struct {
		batches []Batch
		pos     int
	}
)

var ErrColumnLength = errors.New("column lengths differ")

func NewValues(t dtype.DataType, data ...any) *Values {
	return &Values{Type: t, Data: data}
}

func (v *Values) DataType() dtype.DataType { return v.Type }
func (v *Values) Len() int { return len(v.Data) }
func (v *Values) Value(i int) any { return v.Data[i] }

// NewRecord assembles columns of equal length into a batch.
func NewRecord(cols ...Column) (*Record, error) {
	r := &Record{cols: cols}
	for i, col := range cols {
		if i == 0 {
			r.rows = col.Len()
			continue
		}
		if col.Len() != r.rows {
			return nil, fmt.Errorf("column %d has %d rows, expected %d: %w", i, col.Len(), r.rows, ErrColumnLength)
		}
	}
	return r, nil
}

func (r *Record) NumRows() int { return r.rows }
func (r *Record) NumCols() int { return len(r.cols) }
func (r *Record) Column(i int) Column { return r.cols[i] }

// Slice returns a view of rows [i, j) without copying.
func (r *Record) Slice(i, j int) *Record {
	return Slice(r, i, j)
}

// Slice returns a view of rows [i, j) of any batch.
func Slice(b Batch, i, j int) *Record {
	cols := make([]Column, b.NumCols())
	for c := range cols {
		cols[c] = &sliced{Column: b.Column(c), offset: i, length: j - i}
	}
	return &Record{cols: cols, rows: j - i}
}

func (s *sliced) Len() int { return s.length }
func (s *sliced) Value(i int) any { return s.Column.Value(s.offset + i) }

// Chunk splits b into consecutive views of at most size rows. A batch with no
// rows yields no chunks.
func Chunk(b Batch, size int) []Batch {
	if size <= 0 {
		size = b.NumRows()
	}
	var out []Batch
	for i := 0; i < b.NumRows(); i += size {
		j := i + size
		if j > b.NumRows() {
			j = b.NumRows()
		}
		out = append(out, Slice(b, i, j))
	}
	return out
}

func NewSliceReader(batches ...Batch) *SliceReader {
	return &SliceReader{batches: batches}
}

func (s *SliceReader) Next() (Batch, error) {
	if s.pos >= len(s.batches) {
		return nil, io.EOF
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

// ReadAll drains r into a slice.
func ReadAll(r Reader) ([]Batch, error) {
	var out []Batch
	for {
		b, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
}
