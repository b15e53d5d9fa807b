// SPDX-License-Identifier: MIT
// Package: model
//
// Purpose:
//   - Linear is a self-contained Builder: optics(x) = base ⊕ S·(x + κ·x∘x).
//     κ bends every variable's effective strength, so a fixed S is only the
//     tangent at x = 0 and a correction needs several iterations.
//   - ⊕ follows the kind semantics: Relative kinds scale the base value by
//     (1 + shift), every other kind adds the shift.
//
// Determinism:
//   - Pure arithmetic over the base frame; safe for concurrent use.

package model

import (
	"context"
	"fmt"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/optics"
)

// LinearOption configures a Linear builder.
type LinearOption func(*Linear)

// WithCurvature sets κ in the effective strength x + κ·x². Zero keeps the
// builder exactly linear.
func WithCurvature(k float64) LinearOption {
	return func(l *Linear) { l.curvature = k }
}

// Linear is the reference Builder used by tests and dry runs.
type Linear struct {
	base      *optics.Frame
	keys      []optics.Key
	vars      []string
	varIdx    map[string]int
	sens      *matrix.Dense
	curvature float64
}

// NewLinear returns a builder over base with sensitivity sens (len(keys)×len(vars)).
//
// Errors:
//   - ErrLengthMismatch if sens does not match the label counts.
//   - optics.MissingObservableError if a key is absent from base.
func NewLinear(base *optics.Frame, keys []optics.Key, vars []string, sens *matrix.Dense, opts ...LinearOption) (*Linear, error) {
	if sens == nil || sens.Rows() != len(keys) || sens.Cols() != len(vars) {
		return nil, fmt.Errorf("model: sensitivity shape vs %d keys × %d vars: %w", len(keys), len(vars), ErrLengthMismatch)
	}
	for _, k := range keys {
		if _, ok := base.Get(k); !ok {
			return nil, &optics.MissingObservableError{Key: k, Source: "base model"}
		}
	}
	l := &Linear{
		base:   base.Clone(),
		keys:   append([]optics.Key(nil), keys...),
		vars:   append([]string(nil), vars...),
		varIdx: make(map[string]int, len(vars)),
		sens:   sens.Clone().(*matrix.Dense),
	}
	for i, v := range vars {
		l.varIdx[v] = i
	}
	for _, o := range opts {
		o(l)
	}

	return l, nil
}

// Variables returns the variable names the builder accepts.
func (l *Linear) Variables() []string { return append([]string(nil), l.vars...) }

// ApplyCorrection implements Builder.
func (l *Linear) ApplyCorrection(ctx context.Context, c Correction) (*optics.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x := make([]float64, len(l.vars))
	for _, n := range c.names {
		j, ok := l.varIdx[n]
		if !ok {
			return nil, fmt.Errorf("%q: %w", n, ErrUnknownVariable)
		}
		v := c.values[n]
		x[j] = v + l.curvature*v*v
	}
	s, err := matrix.MatVec(l.sens, x)
	if err != nil {
		return nil, fmt.Errorf("model: apply: %w", err)
	}

	out := l.base.Clone()
	for i, k := range l.keys {
		e, _ := out.Get(k)
		if k.Kind.Semantics() == optics.Relative {
			e.Value *= 1 + s[i]
		} else {
			e.Value += s[i]
		}
		if err = out.Set(k, e); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// PerturbVariable implements Builder.
func (l *Linear) PerturbVariable(ctx context.Context, base Correction, name string, dk float64) (*optics.Frame, error) {
	if _, ok := l.varIdx[name]; !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownVariable)
	}
	c := base.Clone()
	c.Add(name, dk)

	return l.ApplyCorrection(ctx, c)
}
