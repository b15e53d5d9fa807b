// SPDX-License-Identifier: MIT
package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/opticorr/matrix"
)

func TestValidateNotNil_TypedNil(t *testing.T) {
	var d *matrix.Dense
	require.ErrorIs(t, matrix.ValidateNotNil(d), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateNotNil(nil), matrix.ErrNilMatrix)
}

func TestValidateFinite(t *testing.T) {
	ok := NewFilledDense(t, 2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, matrix.ValidateFinite(ok))

	bad := NewFilledDense(t, 2, 2, []float64{1, math.NaN(), 3, 4})
	require.ErrorIs(t, matrix.ValidateFinite(bad), matrix.ErrNaNInf)
	require.ErrorIs(t, matrix.ValidateFinite(hide{bad}), matrix.ErrNaNInf)

	require.ErrorIs(t, matrix.ValidateFiniteVec([]float64{0, math.Inf(-1)}), matrix.ErrNaNInf)
}

func TestRowFinite(t *testing.T) {
	m := NewFilledDense(t, 3, 2, []float64{
		1, 2,
		math.Inf(1), 0,
		5, 6,
	})
	mask, err := matrix.RowFinite(m)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true}, mask)
}

func TestAllClose_Tolerances(t *testing.T) {
	a := NewFilledDense(t, 1, 2, []float64{1, 2})
	b := NewFilledDense(t, 1, 2, []float64{1, 2.001})
	ok, err := matrix.AllClose(a, b, 0, 1e-2)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = matrix.AllClose(a, b, 0, 1e-4)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = matrix.AllClose(a, b, math.NaN(), 0)
	require.ErrorIs(t, err, matrix.ErrNaNInf)
}
