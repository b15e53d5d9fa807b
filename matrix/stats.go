package matrix

import "math"

// ColumnNorms returns the L2 norm of every column of X.
// Implementation:
//   - Stage 1: Validate X (non-nil); zero-size yields an empty or zero slice.
//   - Stage 2: Accumulate squares row by row (Dense fast-path, At fallback).
//
// A zero norm marks a column with no effect on any row; the response tooling
// reports such variables before they reach the solver.
//
// Complexity:
//   - Time O(r*c), Space O(c).
func ColumnNorms(X Matrix) ([]float64, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf("ColumnNorms", err)
	}
	r, c := X.Rows(), X.Cols()
	norms := make([]float64, c)
	if r == 0 || c == 0 {
		return norms, nil
	}

	var i, j int
	var v float64
	if d, ok := X.(*Dense); ok {
		for i = 0; i < r; i++ {
			base := i * c
			for j = 0; j < c; j++ {
				v = d.data[base+j]
				norms[j] += v * v
			}
		}
	} else {
		var err error
		for i = 0; i < r; i++ {
			for j = 0; j < c; j++ {
				if v, err = X.At(i, j); err != nil {
					return nil, matrixErrorf("ColumnNorms", err)
				}
				norms[j] += v * v
			}
		}
	}
	for j = range norms {
		norms[j] = math.Sqrt(norms[j])
	}

	return norms, nil
}
