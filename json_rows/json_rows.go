// Package json_rows turns JSON rows into column batches typed by a hasher
// schema.
package json_rows

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/danthegoodman1/gojsonutils"
	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/encoder"
	"github.com/danthegoodman1/idhash/hasher"
)

type coerceFunc func(v any, t dtype.DataType) (any, bool)

var (
	ErrNotFlatMap = errors.New("not a flat map")
	ErrNotObject  = errors.New("line was not a JSON object")
	ErrTrailing   = errors.New("line has data after its JSON object")

	// Layouts tried, in order, for timestamp strings
	TimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	coercers = map[dtype.Kind]coerceFunc{
		dtype.KindNull:      func(v any, _ dtype.DataType) (any, bool) { return nil, false },
		dtype.KindInt:       coerceInt,
		dtype.KindFloat:     coerceFloat,
		dtype.KindBool:      coerceBool,
		dtype.KindString:    coerceString,
		dtype.KindTimestamp: coerceTime,
	}
)

// Decode converts rows into one batch typed by schema. Nested objects are
// flattened first and fill the field named by the joined key path. A key the
// schema does not know is a *hasher.SchemaMismatchError, a missing key is a
// null.
func Decode(rows []map[string]any, schema *hasher.Schema) (*batch.Record, error) {
	cols := make([][]any, schema.Len())
	for i := range cols {
		cols[i] = make([]any, len(rows))
	}

	for r, row := range rows {
		flat, err := flatten(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		for key, val := range flat {
			idx := schema.FieldIndex(key)
			if idx < 0 {
				return nil, &hasher.SchemaMismatchError{Field: key, Index: -1, Reason: fmt.Sprintf("row %d has a key not in the schema", r)}
			}
			field := schema.Field(idx)
			v, err := Coerce(val, field.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d field %q: %w", r, field.Name, err)
			}
			cols[idx][r] = v
		}
	}

	columns := make([]batch.Column, schema.Len())
	for i, f := range schema.Fields() {
		columns[i] = batch.NewValues(f.Type, cols[i]...)
	}
	return batch.NewRecord(columns...)
}

// DecodeNDJSON decodes newline delimited JSON. Numbers keep full precision.
func DecodeNDJSON(s string, schema *hasher.Schema) (*batch.Record, error) {
	var rows []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("error in json.Decode on line %d: %w", line, err)
		}
		jsonMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("line %d: %w", line, ErrNotObject)
		}
		var extra any
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("line %d: %w", line, ErrTrailing)
		}
		rows = append(rows, jsonMap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning NDJSON: %w", err)
	}
	return Decode(rows, schema)
}

func flatten(row map[string]any) (map[string]any, error) {
	flat, err := gojsonutils.Flatten(row, nil)
	if err != nil {
		return nil, fmt.Errorf("error in gojsonutils.Flatten: %w", err)
	}
	flatMap, ok := flat.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("got %T: %w", flat, ErrNotFlatMap)
	}
	return flatMap, nil
}

// Coerce converts a decoded JSON value into the Go value the encoder expects
// for t. nil stays nil.
func Coerce(v any, t dtype.DataType) (any, error) {
	if v == nil {
		return nil, nil
	}
	coerce, ok := coercers[t.Kind]
	if !ok {
		return nil, &dtype.UnsupportedTypeError{Tag: t.Tag, Kind: t.Kind}
	}
	out, ok := coerce(v, t)
	if !ok {
		return nil, &encoder.TypeMismatchError{Value: v, Type: t}
	}
	return out, nil
}

func coerceInt(v any, _ dtype.DataType) (any, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		// JSON numbers decoded without UseNumber
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return nil, false
		}
		return int64(n), true
	case int64, int32, int:
		return n, true
	}
	return nil, false
}

func coerceFloat(v any, _ dtype.DataType) (any, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64, float32:
		return n, true
	}
	return nil, false
}

func coerceBool(v any, _ dtype.DataType) (any, bool) {
	b, ok := v.(bool)
	return b, ok
}

func coerceString(v any, _ dtype.DataType) (any, bool) {
	s, ok := v.(string)
	return s, ok
}

// coerceTime accepts a formatted string, read in the column's zone when it
// has no offset, or a number of the column's unit since the epoch.
func coerceTime(v any, t dtype.DataType) (any, bool) {
	switch val := v.(type) {
	case string:
		loc := location(t.TimeZone)
		for _, layout := range TimeLayouts {
			if parsed, err := time.ParseInLocation(layout, val, loc); err == nil {
				return parsed, true
			}
		}
		return nil, false
	case json.Number:
		i, err := val.Int64()
		return i, err == nil
	case float64:
		if val != math.Trunc(val) {
			return nil, false
		}
		return int64(val), true
	case time.Time:
		return val, true
	}
	return nil, false
}

func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc
	}
	if off, err := time.Parse("-07:00", tz); err == nil {
		_, secs := off.Zone()
		return time.FixedZone(tz, secs)
	}
	return time.UTC
}
