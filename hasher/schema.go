package hasher

import (
	"encoding/binary"
	"fmt"

	"github.com/danthegoodman1/idhash/accumulator"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/zeebo/xxh3"
)

// Domain separation seeds so a row, a schema and a final mix never hash the
// same byte string the same way.
const (
	rowSeed      uint64 = 0x726f775f64696773 // "row_digs"
	schemaSeed   uint64 = 0x736368656d615f6b // "schema_k"
	finalizeSeed uint64 = 0x66696e616c697a65 // "finalize"
)

type (
	Field struct {
		Name string
		Type dtype.DataType
	}

	// Schema is the ordered field list of a dataset. Field order is part of
	// the fingerprint.
	Schema struct {
		fields []Field
		index  map[string]int
		key    accumulator.Digest
	}
)

// NewSchema parses fieldTypes and validates the pairing with fieldNames.
func NewSchema(fieldNames, fieldTypes []string) (*Schema, error) {
	if len(fieldNames) != len(fieldTypes) {
		return nil, &SchemaError{Reason: fmt.Sprintf("%d field names but %d field types", len(fieldNames), len(fieldTypes))}
	}
	fields := make([]Field, len(fieldNames))
	for i, name := range fieldNames {
		dt, err := dtype.Parse(fieldTypes[i])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[i] = Field{Name: name, Type: dt}
	}
	return NewSchemaFromFields(fields...)
}

// NewSchemaFromFields validates already typed fields.
func NewSchemaFromFields(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, &SchemaError{Reason: "empty field name", Index: i}
		}
		if !f.Type.Kind.Valid() {
			return nil, &dtype.UnsupportedTypeError{Tag: f.Type.Tag, Kind: f.Type.Kind}
		}
		if prev, exists := s.index[f.Name]; exists {
			return nil, &SchemaError{Reason: fmt.Sprintf("duplicate of index %d", prev), Field: f.Name, Index: i}
		}
		s.index[f.Name] = i
	}
	s.key = SchemaKey(s.fields)
	return s, nil
}

func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Len() int { return len(s.fields) }
func (s *Schema) Field(i int) Field { return s.fields[i] }
func (s *Schema) Key() accumulator.Digest { return s.key }

// FieldIndex returns the position of name, or -1.
func (s *Schema) FieldIndex(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// SchemaKey digests the ordered (name, kind) pairs. Physical details like
// timestamp unit or integer width are left out, they do not change what the
// data means.
func SchemaKey(fields []Field) accumulator.Digest {
	buf := make([]byte, 0, 64*len(fields))
	for i, f := range fields {
		buf = binary.BigEndian.AppendUint32(buf, uint32(i))
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(f.Name)))
		buf = append(buf, f.Name...)
		buf = append(buf, byte(f.Type.Kind))
	}
	sum := xxh3.Hash128Seed(buf, schemaSeed)
	return accumulator.Digest{Hi: sum.Hi, Lo: sum.Lo}
}
