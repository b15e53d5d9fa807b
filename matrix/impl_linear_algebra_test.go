// Package matrix_test contains unit tests for universal Matrix (linear algebra) operations.
package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/opticorr/matrix"
)

// TestHelpers_InterfaceHiding_Fallback ensures that using a wrapper
// (which hides the concrete type) forces the interface fallback path
// and produces the same results as with the bare Dense.
func TestHelpers_InterfaceHiding_Fallback(t *testing.T) {
	t.Parallel()

	a := RandFilledDense(t, 4, 3, 1)
	b := RandFilledDense(t, 3, 5, 2)

	fast, err := matrix.Mul(a, b)
	require.NoError(t, err)
	slow, err := matrix.Mul(hide{a}, hide{b})
	require.NoError(t, err)
	CompareClose(t, fast, slow, 0, 1e-14)

	c := RandFilledDense(t, 4, 3, 3)
	diff1, err := matrix.Sub(a, c)
	require.NoError(t, err)
	diff2, err := matrix.Sub(hide{a}, c)
	require.NoError(t, err)
	CompareClose(t, diff1, diff2, 0, 0)
}

func TestMul_Known(t *testing.T) {
	a := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := NewFilledDense(t, 3, 2, []float64{7, 8, 9, 10, 11, 12})
	got, err := matrix.Mul(a, b)
	require.NoError(t, err)
	want := NewFilledDense(t, 2, 2, []float64{58, 64, 139, 154})
	CompareClose(t, got, want, 0, 0)

	_, err = matrix.Mul(a, a)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = matrix.Mul(nil, a)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestSub_ShapeMismatch(t *testing.T) {
	a := MustDense(t, 2, 2)
	b := MustDense(t, 2, 3)
	_, err := matrix.Sub(a, b)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestTranspose_RoundTrip(t *testing.T) {
	a := RandFilledDense(t, 3, 5, 7)
	at, err := matrix.Transpose(a)
	require.NoError(t, err)
	require.Equal(t, 5, at.Rows())
	require.Equal(t, 3, at.Cols())
	att, err := matrix.Transpose(hide{at})
	require.NoError(t, err)
	CompareClose(t, att, a, 0, 0)
}

func TestScale(t *testing.T) {
	a := NewFilledDense(t, 1, 3, []float64{1, -2, 3})
	got, err := matrix.Scale(a, -2)
	require.NoError(t, err)
	CompareClose(t, got, NewFilledDense(t, 1, 3, []float64{-2, 4, -6}), 0, 0)
}

func TestMatVec_And_TMatVec(t *testing.T) {
	a := NewFilledDense(t, 3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	y, err := matrix.MatVec(a, []float64{1, -1})
	require.NoError(t, err)
	require.Equal(t, []float64{-1, -1, -1}, y)

	yt, err := matrix.TMatVec(a, []float64{1, 0, 1})
	require.NoError(t, err)
	require.Equal(t, []float64{6, 8}, yt)

	yh, err := matrix.TMatVec(hide{a}, []float64{1, 0, 1})
	require.NoError(t, err)
	require.Equal(t, yt, yh)

	_, err = matrix.MatVec(a, []float64{1})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = matrix.TMatVec(a, nil)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestScaleRowsCols(t *testing.T) {
	a := NewFilledDense(t, 2, 2, []float64{1, 2, 3, 4})
	r, err := matrix.ScaleRows(a, []float64{2, 0})
	require.NoError(t, err)
	CompareClose(t, r, NewFilledDense(t, 2, 2, []float64{2, 4, 0, 0}), 0, 0)

	c, err := matrix.ScaleCols(hide{a}, []float64{1, -1})
	require.NoError(t, err)
	CompareClose(t, c, NewFilledDense(t, 2, 2, []float64{1, -2, 3, -4}), 0, 0)

	_, err = matrix.ScaleRows(a, []float64{1})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
