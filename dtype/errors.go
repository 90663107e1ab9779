package dtype

import "fmt"

// UnsupportedTypeError is returned for a declared type outside the supported
// set of logical kinds.
type UnsupportedTypeError struct {
	Tag  string
	Kind Kind
}

func (e *UnsupportedTypeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("unsupported type %q", e.Tag)
	}
	return fmt.Sprintf("unsupported type %s", e.Kind)
}
