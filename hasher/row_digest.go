package hasher

import (
	"encoding/binary"
	"fmt"

	"github.com/danthegoodman1/idhash/accumulator"
	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/encoder"
	"github.com/zeebo/xxh3"
)

// RowDigest digests a single row given as one value per schema field, in
// schema order. Each value is tagged with its field index so equal bytes
// shifted between fields do not collide.
func RowDigest(row []any, schema *Schema) (accumulator.Digest, error) {
	if len(row) != schema.Len() {
		return accumulator.Digest{}, &SchemaMismatchError{Reason: fmt.Sprintf("row has %d values, schema has %d fields", len(row), schema.Len())}
	}
	buf := make([]byte, 0, 16*len(row))
	for i, v := range row {
		var err error
		buf, err = appendField(buf, i, v, schema.fields[i].Type, schema.fields[i].Type.Kind)
		if err != nil {
			return accumulator.Digest{}, &ValueError{Field: schema.fields[i].Name, Index: i, cause: err}
		}
	}
	return sumRow(buf), nil
}

func appendField(buf []byte, idx int, v any, colType dtype.DataType, fieldKind dtype.Kind) ([]byte, error) {
	buf = binary.BigEndian.AppendUint32(buf, uint32(idx))
	if v == nil {
		// nulls take the declared kind, whatever column type carried them
		return encoder.AppendNull(buf, fieldKind), nil
	}
	return encoder.Append(buf, v, colType)
}

func sumRow(buf []byte) accumulator.Digest {
	sum := xxh3.Hash128Seed(buf, rowSeed)
	return accumulator.Digest{Hi: sum.Hi, Lo: sum.Lo}
}

// columnTypes checks b against the schema and returns the type each column
// is encoded with. A column keeps its own physical type (timestamp unit) as
// long as its kind matches the field; an all null column takes the field's.
func columnTypes(schema *Schema, b batch.Batch, batchIdx int) ([]dtype.DataType, error) {
	if b.NumCols() != schema.Len() {
		return nil, &SchemaMismatchError{Batch: batchIdx, Reason: fmt.Sprintf("batch has %d columns, schema has %d fields", b.NumCols(), schema.Len())}
	}
	types := make([]dtype.DataType, schema.Len())
	for i, f := range schema.fields {
		col := b.Column(i)
		if col.Len() != b.NumRows() {
			return nil, &SchemaMismatchError{Batch: batchIdx, Field: f.Name, Index: i, Reason: fmt.Sprintf("column has %d rows, batch has %d", col.Len(), b.NumRows())}
		}
		ct := col.DataType()
		switch ct.Kind {
		case f.Type.Kind:
			types[i] = ct
		case dtype.KindNull:
			types[i] = f.Type
		default:
			return nil, &SchemaMismatchError{Batch: batchIdx, Field: f.Name, Index: i, Reason: fmt.Sprintf("column type %s, field declared %s", ct, f.Type)}
		}
	}
	return types, nil
}

// digestRows folds rows [from, to) of b into a fresh partial state.
func digestRows(schema *Schema, b batch.Batch, types []dtype.DataType, batchIdx, from, to int) (accumulator.State, error) {
	var st accumulator.State
	cols := make([]batch.Column, len(types))
	for i := range cols {
		cols[i] = b.Column(i)
	}

	buf := make([]byte, 0, 256)
	for r := from; r < to; r++ {
		buf = buf[:0]
		for i, col := range cols {
			var err error
			buf, err = appendField(buf, i, col.Value(r), types[i], schema.fields[i].Type.Kind)
			if err != nil {
				return st, &ValueError{Batch: batchIdx, Row: r, Field: schema.fields[i].Name, Index: i, cause: err}
			}
		}
		st.Fold(sumRow(buf), accumulator.Positive)
	}
	return st, nil
}
