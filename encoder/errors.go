package encoder

import (
	"fmt"

	"github.com/danthegoodman1/idhash/dtype"
)

// TypeMismatchError is returned when a value's Go type cannot be coerced to
// the declared type of its column.
type TypeMismatchError struct {
	Value any
	Type  dtype.DataType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot encode %v (%T) as %s", e.Value, e.Value, e.Type)
}
