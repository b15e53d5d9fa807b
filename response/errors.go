package response

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseMatrixFormat is matched by every ResponseMatrixFormatError.
	ErrResponseMatrixFormat = errors.New("response: malformed response matrix")

	// ErrUnknownVariableCategory is matched by every UnknownVariableCategoryError.
	ErrUnknownVariableCategory = errors.New("response: unknown variable category")

	// ErrRowMismatch is returned when residual keys do not match matrix rows.
	ErrRowMismatch = errors.New("response: residual keys do not match matrix rows")

	// ErrInvalidDeltaK is returned for a non-positive or non-finite perturbation step.
	ErrInvalidDeltaK = errors.New("response: delta_k must be positive and finite")
)

// ResponseMatrixFormatError reports a malformed or duplicated label, or a
// values table whose shape disagrees with the labels.
type ResponseMatrixFormatError struct {
	Label  string
	Reason string
	Err    error
}

func (e *ResponseMatrixFormatError) Error() string {
	msg := "response: malformed response matrix"
	if e.Label != "" {
		msg += fmt.Sprintf(" at %q", e.Label)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is makes errors.Is(err, ErrResponseMatrixFormat) true.
func (e *ResponseMatrixFormatError) Is(target error) bool { return target == ErrResponseMatrixFormat }

// Unwrap returns the underlying cause, if any.
func (e *ResponseMatrixFormatError) Unwrap() error { return e.Err }

// UnknownVariableCategoryError reports a requested category with no matching column.
type UnknownVariableCategoryError struct {
	Category string
}

func (e *UnknownVariableCategoryError) Error() string {
	return fmt.Sprintf("response: variable category %q has no matching column", e.Category)
}

// Is makes errors.Is(err, ErrUnknownVariableCategory) true.
func (e *UnknownVariableCategoryError) Is(target error) bool {
	return target == ErrUnknownVariableCategory
}
