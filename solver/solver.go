// SPDX-License-Identifier: MIT
// Package: solver

package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/opticorr/matrix"
)

var (
	// ErrDimensionMismatch is returned when weights, residuals and matrix rows disagree.
	ErrDimensionMismatch = errors.New("solver: dimension mismatch")

	// ErrSingularSystem is returned when no singular value survives the cutoff.
	ErrSingularSystem = errors.New("solver: singular system")

	// ErrInvalidCutoff is returned for a cutoff outside [0, 1).
	ErrInvalidCutoff = errors.New("solver: svd cutoff must be in [0, 1)")

	// ErrNonFinite is returned when the weighted system holds NaN or ±Inf.
	ErrNonFinite = errors.New("solver: non-finite input")
)

// Result carries the correction delta and diagnostics of one solve.
type Result struct {
	Delta []float64
	Rank  int
	// Optimality is max_j |((W·R)ᵀ(w∘r − W·R·δ))_j|: zero at the exact
	// least-squares solution, positive when truncation left a reachable
	// part of the residual uncorrected.
	Optimality float64
}

// Solve returns the correction delta, one value per column of R.
// A nil weights slice means unit weights.
func Solve(R matrix.Matrix, residual, weights []float64, cutoff float64) ([]float64, error) {
	res, err := SolveDetailed(R, residual, weights, cutoff)
	if err != nil {
		return nil, err
	}

	return res.Delta, nil
}

// SolveDetailed is Solve plus the number of kept singular values.
//
// Implementation:
//   - Stage 1: validate cutoff, R, len(residual) == len(weights) == R.Rows().
//   - Stage 2: scale rows of R and residual by w.
//   - Stage 3: truncated pseudoinverse P = (W·R)⁺; δ = P·(w∘r).
//   - Stage 4: gradient (W·R)ᵀ(w∘r − W·R·δ) for Optimality.
//
// Errors:
//   - ErrInvalidCutoff, ErrDimensionMismatch, ErrNonFinite, ErrSingularSystem.
//
// Complexity:
//   - Time O(n·m·min(n,m)), Space O(n·m).
func SolveDetailed(R matrix.Matrix, residual, weights []float64, cutoff float64) (Result, error) {
	if math.IsNaN(cutoff) || cutoff < 0 || cutoff >= 1 {
		return Result{}, fmt.Errorf("cutoff=%g: %w", cutoff, ErrInvalidCutoff)
	}
	if err := matrix.ValidateNotNil(R); err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}
	n, m := R.Rows(), R.Cols()
	if n == 0 || m == 0 {
		return Result{}, fmt.Errorf("solver: empty %d×%d system: %w", n, m, ErrSingularSystem)
	}
	if len(residual) != n {
		return Result{}, fmt.Errorf("solver: %d residuals for %d rows: %w", len(residual), n, ErrDimensionMismatch)
	}
	if weights == nil {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != n {
		return Result{}, fmt.Errorf("solver: %d weights for %d rows: %w", len(weights), n, ErrDimensionMismatch)
	}

	wr := make([]float64, n)
	for i := range wr {
		wr[i] = weights[i] * residual[i]
	}
	if err := matrix.ValidateFiniteVec(wr); err != nil {
		return Result{}, fmt.Errorf("solver: residual: %w: %w", ErrNonFinite, err)
	}
	wR, err := matrix.ScaleRows(R, weights)
	if err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}
	if err = matrix.ValidateFinite(wR); err != nil {
		return Result{}, fmt.Errorf("solver: matrix: %w: %w", ErrNonFinite, err)
	}

	p, rank, err := matrix.PseudoInverse(wR, cutoff)
	if err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}
	if rank == 0 {
		return Result{}, fmt.Errorf("solver: no singular value above cutoff %g: %w", cutoff, ErrSingularSystem)
	}
	delta, err := matrix.MatVec(p, wr)
	if err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}

	fitted, err := matrix.MatVec(wR, delta)
	if err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}
	for i := range fitted {
		fitted[i] = wr[i] - fitted[i]
	}
	grad, err := matrix.TMatVec(wR, fitted)
	if err != nil {
		return Result{}, fmt.Errorf("solver: %w", err)
	}
	opt := 0.0
	for _, g := range grad {
		opt = math.Max(opt, math.Abs(g))
	}

	return Result{Delta: delta, Rank: rank, Optimality: opt}, nil
}
