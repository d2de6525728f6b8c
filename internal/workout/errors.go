package workout

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every ValidationError via errors.Is.
var ErrInvalidInput = errors.New("invalid workout input")

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is lets callers match any validation failure with ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
