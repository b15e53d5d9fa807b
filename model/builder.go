package model

import (
	"context"
	"errors"

	"github.com/katalvlaran/opticorr/optics"
)

var (
	// ErrUnknownVariable is returned when a correction names a variable the
	// builder has no knowledge of.
	ErrUnknownVariable = errors.New("model: unknown variable")

	// ErrLengthMismatch is returned when parallel slices disagree in length.
	ErrLengthMismatch = errors.New("model: length mismatch")
)

// Builder produces model optics for a corrector setting.
//
// ApplyCorrection returns the optics with the cumulative correction applied
// to the base machine. PerturbVariable returns the optics for base with name
// shifted by dk; it is used for finite-difference response computation.
// Implementations must not retain or mutate the Correction arguments.
type Builder interface {
	ApplyCorrection(ctx context.Context, c Correction) (*optics.Frame, error)
	PerturbVariable(ctx context.Context, base Correction, name string, dk float64) (*optics.Frame, error)
}
