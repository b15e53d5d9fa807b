// SPDX-License-Identifier: MIT
// Package matrix - singular value decomposition and truncated pseudoinverse.
//
// Purpose:
//   - Bridge Dense to gonum's thin SVD (gonum.org/v1/gonum/mat) and back.
//   - Provide PseudoInverse with a relative singular value cutoff: any
//     singular value s < cutoff*max(s) contributes nothing to the inverse.
//
// Determinism:
//   - gonum's LAPACK-backed SVD is deterministic for identical input.
//   - Singular values are returned in non-increasing order.

package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	opSVD   = "SVD"
	opPinv  = "PseudoInverse"
	opToGon = "toGonum"
)

// SVD holds a thin decomposition M = U·diag(S)·Vᵀ.
//   - U: r×k with orthonormal columns, k = min(r, c).
//   - S: k singular values in non-increasing order.
//   - V: c×k with orthonormal columns.
type SVD struct {
	U *Dense
	S []float64
	V *Dense
}

// toGonum copies any Matrix into a gonum *mat.Dense.
func toGonum(m Matrix) (*mat.Dense, error) {
	r, c := m.Rows(), m.Cols()
	if d, ok := m.(*Dense); ok {
		buf := make([]float64, len(d.data))
		copy(buf, d.data)
		return mat.NewDense(r, c, buf), nil
	}
	buf := make([]float64, r*c)
	var i, j int
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			v, err := m.At(i, j)
			if err != nil {
				return nil, matrixErrorf(opToGon, err)
			}
			buf[i*c+j] = v
		}
	}

	return mat.NewDense(r, c, buf), nil
}

// fromGonum copies a gonum matrix into a new Dense.
func fromGonum(g mat.Matrix) *Dense {
	r, c := g.Dims()
	out := &Dense{r: r, c: c, data: make([]float64, r*c)}
	var i, j int
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			out.data[i*c+j] = g.At(i, j)
		}
	}

	return out
}

// Decompose computes the thin SVD of m.
//
// Implementation:
//   - Stage 1: ValidateNotNil + ValidateFinite (LAPACK must not see NaN/Inf).
//   - Stage 2: gonum SVD.Factorize(SVDThin); extract U, S, V as Dense.
//
// Errors:
//   - ErrNilMatrix, ErrNaNInf, ErrSVDFailed.
//
// Complexity:
//   - Time O(r*c*min(r,c)), Space O(r*c).
func Decompose(m Matrix) (*SVD, error) {
	if err := ValidateFinite(m); err != nil {
		return nil, matrixErrorf(opSVD, err)
	}
	g, err := toGonum(m)
	if err != nil {
		return nil, matrixErrorf(opSVD, err)
	}

	var svd mat.SVD
	if ok := svd.Factorize(g, mat.SVDThin); !ok {
		return nil, matrixErrorf(opSVD, ErrSVDFailed)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	return &SVD{
		U: fromGonum(&u),
		S: svd.Values(nil),
		V: fromGonum(&v),
	}, nil
}

// Rank counts singular values s with s >= cutoff*max(S) and s > 0.
// A decomposition whose largest singular value is zero has rank 0.
func (s *SVD) Rank(cutoff float64) int {
	if len(s.S) == 0 || s.S[0] <= 0 {
		return 0
	}
	threshold := cutoff * s.S[0]
	rank := 0
	for _, v := range s.S {
		if v < threshold || v <= 0 {
			continue
		}
		rank++
	}

	return rank
}

// PseudoInverse returns the truncated Moore–Penrose pseudoinverse of m
// together with the number of singular values that were kept.
//
// Implementation:
//   - Stage 1: validate cutoff ∈ [0, 1); Decompose(m); k = Rank(cutoff).
//   - Stage 2: keep the leading k columns of U and V (S is non-increasing,
//     so the kept values form a prefix).
//   - Stage 3: P = (V_k · diag(1/s_k)) · U_kᵀ via ScaleCols, Transpose, Mul.
//
// Behavior highlights:
//   - Discarded directions are exactly absent from P: for any x, P·x has no
//     component along the right singular vectors of dropped values.
//   - rank == 0 is not an error here; P is then the zero matrix and callers
//     decide how to treat an empty system.
//
// Errors:
//   - ErrInvalidCutoff, plus everything Decompose returns.
//
// Complexity:
//   - Time O(r*c*min(r,c)), Space O(r*c).
func PseudoInverse(m Matrix, cutoff float64) (*Dense, int, error) {
	if math.IsNaN(cutoff) || cutoff < 0 || cutoff >= 1 {
		return nil, 0, matrixErrorf(opPinv, fmt.Errorf("cutoff=%g: %w", cutoff, ErrInvalidCutoff))
	}
	dec, err := Decompose(m)
	if err != nil {
		return nil, 0, matrixErrorf(opPinv, err)
	}

	r, c := m.Rows(), m.Cols()
	rank := dec.Rank(cutoff)
	if rank == 0 {
		return &Dense{r: c, c: r, data: make([]float64, r*c)}, 0, nil
	}

	// Stage 2: leading singular triplets.
	kept := make([]int, rank)
	inv := make([]float64, rank)
	for idx := range kept {
		kept[idx] = idx
		inv[idx] = 1 / dec.S[idx]
	}
	uk, err := dec.U.Induced(seq(r), kept)
	if err != nil {
		return nil, 0, matrixErrorf(opPinv, err)
	}
	vk, err := dec.V.Induced(seq(c), kept)
	if err != nil {
		return nil, 0, matrixErrorf(opPinv, err)
	}

	// Stage 3: P = V_k Σ_k⁻¹ U_kᵀ.
	vs, err := ScaleCols(vk, inv)
	if err != nil {
		return nil, 0, matrixErrorf(opPinv, err)
	}
	ut, err := Transpose(uk)
	if err != nil {
		return nil, 0, matrixErrorf(opPinv, err)
	}
	p, err := Mul(vs, ut)
	if err != nil {
		return nil, 0, matrixErrorf(opPinv, err)
	}

	return p.(*Dense), rank, nil
}

// seq returns 0, 1, …, n-1.
func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
