package parquet_source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danthegoodman1/idhash/dtype"
	"github.com/xitongsys/parquet-go/parquet"
)

type (
	ParquetSchema struct {
		TagStructs SchemaTag        `json:"-,omitempty"`
		Fields     []*ParquetSchema `json:",omitempty"`
	}

	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	SchemaTag struct {
		Name           string         `json:"name,omitempty"`
		Type           string         `json:"type,omitempty"`
		ConvertedType  string         `json:"convertedtype,omitempty"`
		RepetitionType RepetitionType `json:"repetitiontype,omitempty"`
		Encoding       string         `json:"encoding,omitempty"`
	}

	RepetitionType string
)

var (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"
)

// JSONSchema builds the parquet-go JSON schema for writing a file whose
// columns hash under names and tags. Timestamps are written as INT64 with a
// TIMESTAMP_MILLIS or TIMESTAMP_MICROS converted type, other units have no
// converted type and are rejected.
func JSONSchema(names, tags []string) (string, error) {
	if len(names) != len(tags) {
		return "", fmt.Errorf("got %d names and %d types", len(names), len(tags))
	}
	var fields []*ParquetJSONSchema
	for i, name := range names {
		dt, err := dtype.Parse(tags[i])
		if err != nil {
			return "", fmt.Errorf("field %q: %w", name, err)
		}
		ps, err := fieldSchema(name, dt)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, ps.ToParquetJSONSchema())
	}
	pjs := ParquetJSONSchema{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}

	b, err := json.Marshal(pjs)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

func fieldSchema(name string, dt dtype.DataType) (*ParquetSchema, error) {
	tag := SchemaTag{Name: name, RepetitionType: Optional}
	switch dt.Kind {
	case dtype.KindInt:
		tag.Type = parquet.Type_INT64.String()
	case dtype.KindFloat:
		tag.Type = parquet.Type_DOUBLE.String()
	case dtype.KindBool:
		tag.Type = parquet.Type_BOOLEAN.String()
	case dtype.KindString:
		tag.Type = parquet.Type_BYTE_ARRAY.String()
		tag.ConvertedType = parquet.ConvertedType_UTF8.String()
		tag.Encoding = parquet.Encoding_PLAIN.String()
	case dtype.KindTimestamp:
		tag.Type = parquet.Type_INT64.String()
		switch dt.Unit {
		case dtype.Millisecond:
			tag.ConvertedType = parquet.ConvertedType_TIMESTAMP_MILLIS.String()
		case dtype.Microsecond:
			tag.ConvertedType = parquet.ConvertedType_TIMESTAMP_MICROS.String()
		default:
			return nil, &dtype.UnsupportedTypeError{Tag: dt.String(), Kind: dt.Kind}
		}
	default:
		return nil, &dtype.UnsupportedTypeError{Tag: dt.String(), Kind: dt.Kind}
	}
	return &ParquetSchema{TagStructs: tag}, nil
}

// ToParquetJSONSchema recursively converts
func (ps *ParquetSchema) ToParquetJSONSchema() *ParquetJSONSchema {
	var tagArr []string
	if ps.TagStructs.Type != "" {
		tagArr = append(tagArr, "type="+ps.TagStructs.Type)
	}
	if ps.TagStructs.ConvertedType != "" {
		tagArr = append(tagArr, "convertedtype="+ps.TagStructs.ConvertedType)
	}
	if ps.TagStructs.Encoding != "" {
		tagArr = append(tagArr, "encoding="+ps.TagStructs.Encoding)
	}
	if ps.TagStructs.Name != "" {
		tagArr = append(tagArr, "name="+ps.TagStructs.Name)
	}
	if string(ps.TagStructs.RepetitionType) != "" {
		tagArr = append(tagArr, "repetitiontype="+string(ps.TagStructs.RepetitionType))
	}
	var fields []*ParquetJSONSchema
	for _, field := range ps.Fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	return &ParquetJSONSchema{
		Tag:    strings.Join(tagArr, ", "),
		Fields: fields,
	}
}
