package grades

import "fmt"

// InvalidInputError reports input whose shape is structurally wrong, such as a
// score record that is not an object of objects. Sparse or blank data is never
// reported this way.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input at %s: %s", e.Field, e.Reason)
}
