package correction

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIterationCount is returned when fewer than one iteration is requested.
	ErrInvalidIterationCount = errors.New("correction: iterations must be at least 1")

	// ErrCollaboratorFailure wraps every error surfaced by the model builder,
	// the artifact hook or context cancellation.
	ErrCollaboratorFailure = errors.New("correction: collaborator failure")

	// ErrInvalidInput is returned for a missing measurement, model, response or builder.
	ErrInvalidInput = errors.New("correction: invalid input")
)

// Stage names the step of an iteration that failed.
type Stage string

// Iteration stages.
const (
	StageSelect   Stage = "select"
	StageDiff     Stage = "diff"
	StageAlign    Stage = "align"
	StageSolve    Stage = "solve"
	StageApply    Stage = "apply"
	StageRefresh  Stage = "refresh"
	StageArtifact Stage = "artifact"
	StageFinal    Stage = "final"
)

// StepError locates a failure inside a run. Iteration is 1-based; 0 means
// the failure happened before the first step.
type StepError struct {
	Iteration int
	Stage     Stage
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("correction: iteration %d, %s: %v", e.Iteration, e.Stage, e.Err)
}

// Unwrap returns the cause.
func (e *StepError) Unwrap() error { return e.Err }

func collaborator(err error) error {
	return fmt.Errorf("%w: %w", ErrCollaboratorFailure, err)
}
