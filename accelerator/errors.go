package accelerator

import (
	"errors"
	"fmt"
)

var (
	// ErrDefinition is matched by every DefinitionError.
	ErrDefinition = errors.New("accelerator: invalid definition")

	// ErrUnknownAccelerator is returned by New for an unregistered name.
	ErrUnknownAccelerator = errors.New("accelerator: unknown accelerator")

	// ErrUnknownElementType is returned for element types outside bpm, magnet and arc_bpm.
	ErrUnknownElementType = errors.New("accelerator: unknown element type")
)

// DefinitionError reports an accelerator configured with invalid settings.
type DefinitionError struct {
	Accelerator string
	Reason      string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("accelerator %s: %s", e.Accelerator, e.Reason)
}

// Is makes errors.Is(err, ErrDefinition) true.
func (e *DefinitionError) Is(target error) bool { return target == ErrDefinition }
