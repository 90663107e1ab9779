// Package parquet_source reads flat parquet files as hasher batches.
package parquet_source

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/gologger"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/types"
)

const DefaultBatchRows = 8192

var logger = gologger.Component("parquet_source")

type (
	Reader struct {
		pf        source.ParquetFile
		pr        *reader.ParquetReader
		names     []string
		types     []dtype.DataType
		convert   []convertFunc
		remaining int64
		batchRows int
	}

	// convertFunc turns a dereferenced column value into what the encoder
	// takes for the column's type.
	convertFunc func(v reflect.Value) any
)

// NewReader opens pf and infers the hashing schema from its footer. The
// Reader owns pf and closes it on Close.
func NewReader(pf source.ParquetFile, batchRows int) (*Reader, error) {
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	pr, err := reader.NewParquetReader(pf, nil, 4)
	if err != nil {
		return nil, fmt.Errorf("error in reader.NewParquetReader: %w", err)
	}

	r := &Reader{
		pf:        pf,
		pr:        pr,
		remaining: pr.GetNumRows(),
		batchRows: batchRows,
	}
	if err := r.inferSchema(pr.SchemaHandler.SchemaElements, externalNames(pr)); err != nil {
		pr.ReadStop()
		return nil, err
	}
	logger.Debug().Strs("columns", r.names).Int64("rows", r.remaining).Msg("opened parquet file")
	return r, nil
}

// OpenLocal opens a parquet file on disk.
func OpenLocal(path string, batchRows int) (*Reader, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("error in local.NewLocalFileReader: %w", err)
	}
	r, err := NewReader(fr, batchRows)
	if err != nil {
		fr.Close()
		return nil, err
	}
	return r, nil
}

// externalNames returns the column names as written, the reader renames its
// schema elements to exported Go field names.
func externalNames(pr *reader.ParquetReader) []string {
	names := make([]string, len(pr.SchemaHandler.SchemaElements))
	for i, el := range pr.SchemaHandler.SchemaElements {
		names[i] = el.GetName()
		if i < len(pr.SchemaHandler.Infos) && pr.SchemaHandler.Infos[i].ExName != "" {
			names[i] = pr.SchemaHandler.Infos[i].ExName
		}
	}
	return names
}

func (r *Reader) inferSchema(elems []*parquet.SchemaElement, names []string) error {
	if len(elems) == 0 {
		return fmt.Errorf("parquet file has no schema")
	}
	root := elems[0]
	if int(root.GetNumChildren()) != len(elems)-1 {
		return &dtype.UnsupportedTypeError{Tag: "nested parquet schema"}
	}
	for i, el := range elems[1:] {
		name := names[i+1]
		dt, conv, err := columnType(el)
		if err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		r.names = append(r.names, name)
		r.types = append(r.types, dt)
		r.convert = append(r.convert, conv)
	}
	return nil
}

func columnType(el *parquet.SchemaElement) (dtype.DataType, convertFunc, error) {
	if el.GetNumChildren() > 0 || el.GetRepetitionType() == parquet.FieldRepetitionType_REPEATED {
		return dtype.DataType{}, nil, &dtype.UnsupportedTypeError{Tag: "nested parquet column"}
	}
	if !el.IsSetType() {
		return dtype.DataType{}, nil, &dtype.UnsupportedTypeError{Tag: "untyped parquet column"}
	}

	if isDecimal(el) {
		return dtype.DataType{}, nil, &dtype.UnsupportedTypeError{Tag: "parquet DECIMAL"}
	}

	switch el.GetType() {
	case parquet.Type_BOOLEAN:
		return dtype.Bool, asIs, nil
	case parquet.Type_FLOAT:
		return dtype.MustParse("float32"), asIs, nil
	case parquet.Type_DOUBLE:
		return dtype.Float, asIs, nil
	case parquet.Type_BYTE_ARRAY, parquet.Type_FIXED_LEN_BYTE_ARRAY:
		return dtype.String, asIs, nil
	case parquet.Type_INT96:
		return dtype.Timestamp(dtype.Nanosecond, ""), func(v reflect.Value) any {
			return types.INT96ToTime(v.String())
		}, nil
	case parquet.Type_INT32, parquet.Type_INT64:
		if dt, conv, ok := unsignedType(el); ok {
			return dt, conv, nil
		}
		if unit, tz, ok := timestampUnit(el); ok {
			return dtype.Timestamp(unit, tz), toInt64, nil
		}
		if el.IsSetConvertedType() && el.GetConvertedType() == parquet.ConvertedType_DATE {
			return dtype.Timestamp(dtype.Second, ""), func(v reflect.Value) any {
				return time.Unix(v.Int()*86400, 0).UTC()
			}, nil
		}
		if el.GetType() == parquet.Type_INT32 {
			return dtype.MustParse("int32"), toInt64, nil
		}
		return dtype.Int64, toInt64, nil
	}
	return dtype.DataType{}, nil, &dtype.UnsupportedTypeError{Tag: el.GetType().String()}
}

func isDecimal(el *parquet.SchemaElement) bool {
	if lt := el.GetLogicalType(); lt != nil && lt.IsSetDECIMAL() {
		return true
	}
	return el.IsSetConvertedType() && el.GetConvertedType() == parquet.ConvertedType_DECIMAL
}

// unsignedType reads UINT_* columns, stored as signed ints of the same
// width, back as unsigned values. UINT_64 values above MaxInt64 fail in the
// encoder.
func unsignedType(el *parquet.SchemaElement) (dtype.DataType, convertFunc, bool) {
	width := int32(0)
	if lt := el.GetLogicalType(); lt != nil && lt.IsSetINTEGER() && !lt.GetINTEGER().GetIsSigned() {
		width = int32(lt.GetINTEGER().GetBitWidth())
	} else if el.IsSetConvertedType() {
		switch el.GetConvertedType() {
		case parquet.ConvertedType_UINT_8:
			width = 8
		case parquet.ConvertedType_UINT_16:
			width = 16
		case parquet.ConvertedType_UINT_32:
			width = 32
		case parquet.ConvertedType_UINT_64:
			width = 64
		}
	}
	switch width {
	case 8:
		return dtype.MustParse("uint8"), func(v reflect.Value) any { return uint8(v.Int()) }, true
	case 16:
		return dtype.MustParse("uint16"), func(v reflect.Value) any { return uint16(v.Int()) }, true
	case 32:
		return dtype.MustParse("uint32"), func(v reflect.Value) any { return uint32(v.Int()) }, true
	case 64:
		return dtype.Int64, func(v reflect.Value) any { return uint64(v.Int()) }, true
	}
	return dtype.DataType{}, nil, false
}

func timestampUnit(el *parquet.SchemaElement) (dtype.TimeUnit, string, bool) {
	if lt := el.GetLogicalType(); lt != nil && lt.IsSetTIMESTAMP() {
		ts := lt.GetTIMESTAMP()
		tz := ""
		if ts.GetIsAdjustedToUTC() {
			tz = "UTC"
		}
		switch {
		case ts.GetUnit().IsSetNANOS():
			return dtype.Nanosecond, tz, true
		case ts.GetUnit().IsSetMICROS():
			return dtype.Microsecond, tz, true
		default:
			return dtype.Millisecond, tz, true
		}
	}
	if !el.IsSetConvertedType() {
		return 0, "", false
	}
	switch el.GetConvertedType() {
	case parquet.ConvertedType_TIMESTAMP_MILLIS:
		return dtype.Millisecond, "", true
	case parquet.ConvertedType_TIMESTAMP_MICROS:
		return dtype.Microsecond, "", true
	}
	return 0, "", false
}

func asIs(v reflect.Value) any { return v.Interface() }
func toInt64(v reflect.Value) any { return v.Int() }

// Names returns the column names in file order.
func (r *Reader) Names() []string {
	return r.names
}

// Tags returns the type tags of the columns, in the form hasher.New takes them.
func (r *Reader) Tags() []string {
	tags := make([]string, len(r.types))
	for i, t := range r.types {
		tags[i] = t.String()
	}
	return tags
}

// Next reads up to batchRows rows. It returns io.EOF once the file is drained.
func (r *Reader) Next() (batch.Batch, error) {
	if r.remaining <= 0 {
		return nil, io.EOF
	}
	n := r.batchRows
	if int64(n) > r.remaining {
		n = int(r.remaining)
	}
	res, err := r.pr.ReadByNumber(n)
	if err != nil {
		return nil, fmt.Errorf("error in ReadByNumber: %w", err)
	}
	if len(res) == 0 {
		r.remaining = 0
		return nil, io.EOF
	}
	r.remaining -= int64(len(res))

	cols := make([][]any, len(r.types))
	for i := range cols {
		cols[i] = make([]any, len(res))
	}
	for row, item := range res {
		// row is a struct with one field per column, in schema order
		v := reflect.ValueOf(item)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.NumField() != len(cols) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", row, v.NumField(), len(cols))
		}
		for i := range cols {
			f := v.Field(i)
			if f.Kind() == reflect.Ptr {
				if f.IsNil() {
					continue
				}
				f = f.Elem()
			}
			cols[i][row] = r.convert[i](f)
		}
	}

	columns := make([]batch.Column, len(cols))
	for i := range cols {
		columns[i] = batch.NewValues(r.types[i], cols[i]...)
	}
	return batch.NewRecord(columns...)
}

func (r *Reader) Close() error {
	r.pr.ReadStop()
	if err := r.pf.Close(); err != nil {
		return fmt.Errorf("error closing parquet file: %w", err)
	}
	return nil
}
