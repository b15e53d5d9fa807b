package solver_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/solver"
)

func randDense(t *testing.T, rng *rand.Rand, r, c int) *matrix.Dense {
	t.Helper()
	buf := make([]float64, r*c)
	for i := range buf {
		buf[i] = rng.Float64()*2 - 1
	}
	d, err := matrix.NewDenseFrom(r, c, buf)
	require.NoError(t, err)

	return d
}

func randVec(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}

	return v
}

func TestSolve_RecoversExactError(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	R := randDense(t, rng, 8, 3)
	e := []float64{0.1, -0.05, 0.02}
	r, err := matrix.MatVec(R, e)
	require.NoError(t, err)

	res, err := solver.SolveDetailed(R, r, nil, 0.01)
	require.NoError(t, err)
	require.InDeltaSlice(t, e, res.Delta, 1e-10)
	require.Equal(t, 3, res.Rank)
	require.InDelta(t, 0, res.Optimality, 1e-10)
}

func TestSolve_LeastSquaresIsOptimal(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	R := randDense(t, rng, 9, 3)
	r := randVec(rng, 9) // not in the range of R
	w := []float64{1, 2, 0.5, 1, 1, 3, 1, 0.2, 1}

	res, err := solver.SolveDetailed(R, r, w, 0)
	require.NoError(t, err)
	require.InDelta(t, 0, res.Optimality, 1e-10)
}

func TestSolve_Linearity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	R := randDense(t, rng, 10, 4)
	w := []float64{1, 0.5, 2, 0, 1, 1, 3, 1, 0.1, 1}
	x1, x2 := randVec(rng, 10), randVec(rng, 10)
	a, b := 1.7, -0.4
	mix := make([]float64, 10)
	for i := range mix {
		mix[i] = a*x1[i] + b*x2[i]
	}

	d1, err := solver.Solve(R, x1, w, 0.01)
	require.NoError(t, err)
	d2, err := solver.Solve(R, x2, w, 0.01)
	require.NoError(t, err)
	dm, err := solver.Solve(R, mix, w, 0.01)
	require.NoError(t, err)
	for j := range dm {
		require.InDelta(t, a*d1[j]+b*d2[j], dm[j], 1e-10)
	}
}

func TestSolve_ZeroWeightExcludesRow(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	R := randDense(t, rng, 6, 2)
	r := randVec(rng, 6)
	w := []float64{1, 1, 0, 1, 1, 1}

	full, err := solver.Solve(R, r, w, 0)
	require.NoError(t, err)

	keep := []int{0, 1, 3, 4, 5}
	sub, err := R.Induced(keep, []int{0, 1})
	require.NoError(t, err)
	rs := make([]float64, len(keep))
	for i, k := range keep {
		rs[i] = r[k]
	}
	reduced, err := solver.Solve(sub, rs, nil, 0)
	require.NoError(t, err)
	require.InDeltaSlice(t, reduced, full, 1e-10)

	// the excluded residual may be anything, even huge
	r[2] = 1e12
	again, err := solver.Solve(R, r, w, 0)
	require.NoError(t, err)
	require.InDeltaSlice(t, full, again, 1e-10)
}

func TestSolve_TruncationRemovesWeakDirection(t *testing.T) {
	// Columns are v1 = (1,1)/√2 with s large and v2 = (1,-1)/√2 with s = 1e-6·s1.
	s := 10.0
	R, err := matrix.NewDenseRows([][]float64{
		{s, s},
		{1e-6 * s, -1e-6 * s},
		{0, 0},
	})
	require.NoError(t, err)
	r := []float64{1, 1, 0}

	res, err := solver.SolveDetailed(R, r, nil, 0.01)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rank)
	// no component along (1,-1)
	require.InDelta(t, 0, res.Delta[0]-res.Delta[1], 1e-12)
	// the dropped direction still holds residual: gradient ≈ s2/√2 = 1e-5
	require.Greater(t, res.Optimality, 1e-6)

	full, err := solver.SolveDetailed(R, r, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 2, full.Rank)
	require.Greater(t, math.Abs(full.Delta[0]-full.Delta[1]), 1e3)
}

func TestSolve_Errors(t *testing.T) {
	R, err := matrix.NewDenseRows([][]float64{{1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)

	_, err = solver.Solve(R, []float64{1, 2}, nil, 0.01)
	require.ErrorIs(t, err, solver.ErrDimensionMismatch)
	_, err = solver.Solve(R, []float64{1, 2, 3}, []float64{1, 1}, 0.01)
	require.ErrorIs(t, err, solver.ErrDimensionMismatch)

	for _, c := range []float64{-0.1, 1, 2, math.NaN()} {
		_, err = solver.Solve(R, []float64{1, 2, 3}, nil, c)
		require.ErrorIs(t, err, solver.ErrInvalidCutoff)
	}

	_, err = solver.Solve(R, []float64{1, 2, 3}, []float64{0, 0, 0}, 0.01)
	require.ErrorIs(t, err, solver.ErrSingularSystem)

	zero, err := matrix.NewDense(3, 2)
	require.NoError(t, err)
	_, err = solver.Solve(zero, []float64{1, 2, 3}, nil, 0.01)
	require.ErrorIs(t, err, solver.ErrSingularSystem)

	_, err = solver.Solve(R, []float64{1, math.NaN(), 3}, nil, 0.01)
	require.ErrorIs(t, err, solver.ErrNonFinite)

	_, err = solver.Solve(nil, nil, nil, 0.01)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestSolve_DoesNotMutateInputs(t *testing.T) {
	R, err := matrix.NewDenseRows([][]float64{{1, 2}, {3, 4}, {5, 7}})
	require.NoError(t, err)
	before := R.Clone()
	r := []float64{1, 2, 3}
	w := []float64{2, 1, 0.5}

	_, err = solver.Solve(R, r, w, 0.01)
	require.NoError(t, err)
	ok, err := matrix.AllClose(R, before, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3}, r)
	require.Equal(t, []float64{2, 1, 0.5}, w)
}
