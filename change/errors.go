package change

import "fmt"

// MalformedValueError reports a snapshot value that is neither map, list,
// nor scalar. Diffing fails fast on it rather than silently skipping the
// sub-tree, which would hide real changes.
type MalformedValueError struct {
	Path  string
	Value any
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("change: malformed value of type %T at %q", e.Value, e.Path)
}
