package hasher

import (
	"errors"
	"fmt"

	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/encoder"
)

var ErrInvalidDelta = errors.New("delta must be Add or Remove")

// SchemaError is returned when a schema is malformed at construction.
type SchemaError struct {
	Reason string
	Field  string
	Index  int
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid schema: field %q (index %d): %s", e.Field, e.Index, e.Reason)
	}
	return "invalid schema: " + e.Reason
}

// SchemaMismatchError is returned when a batch does not have the shape or
// column types of the hasher's schema.
type SchemaMismatchError struct {
	Batch  int
	Field  string
	Index  int
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("batch %d does not match schema: field %q (index %d): %s", e.Batch, e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("batch %d does not match schema: %s", e.Batch, e.Reason)
}

// ValueError locates an encoding failure within a write. The cause is a
// *encoder.TypeMismatchError or a *dtype.UnsupportedTypeError and is
// reachable with errors.As.
type ValueError struct {
	Batch int
	Row   int
	Field string
	Index int
	cause error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("batch %d row %d field %q (index %d): %s", e.Batch, e.Row, e.Field, e.Index, e.cause)
}

func (e *ValueError) Unwrap() error { return e.cause }

// TypeMismatch returns the underlying type mismatch, if that is the cause.
func (e *ValueError) TypeMismatch() (*encoder.TypeMismatchError, bool) {
	var tme *encoder.TypeMismatchError
	ok := errors.As(e.cause, &tme)
	return tme, ok
}

// Unsupported returns the underlying unsupported type error, if that is the
// cause.
func (e *ValueError) Unsupported() (*dtype.UnsupportedTypeError, bool) {
	var ute *dtype.UnsupportedTypeError
	ok := errors.As(e.cause, &ute)
	return ute, ok
}
