package model_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
)

func newBase(t *testing.T) (*optics.Frame, []optics.Key) {
	t.Helper()
	base := optics.NewFrame()
	keys := []optics.Key{
		{Kind: optics.BetaX, Location: "BPM1"},
		{Kind: optics.DispX, Location: "BPM1"},
		{Kind: optics.PhaseX, Location: "BPM1"},
	}
	require.NoError(t, base.Add(keys[0], optics.NewEntry(100, 0)))
	require.NoError(t, base.Add(keys[1], optics.NewEntry(1.5, 0)))
	require.NoError(t, base.Add(keys[2], optics.NewEntry(0.2, 0)))
	require.NoError(t, base.Add(optics.Key{Kind: optics.DispY, Location: "BPM1"}, optics.NewEntry(0.01, 0)))

	return base, keys
}

func TestLinear_ApplyCorrection(t *testing.T) {
	base, keys := newBase(t)
	sens, err := matrix.NewDenseRows([][]float64{{0.1, 0}, {0, 2}, {1, 1}})
	require.NoError(t, err)
	b, err := model.NewLinear(base, keys, []string{"k1", "k2"}, sens)
	require.NoError(t, err)

	c, err := model.CorrectionFrom([]string{"k2", "k1"}, []float64{0.5, 1})
	require.NoError(t, err)
	out, err := b.ApplyCorrection(context.Background(), c)
	require.NoError(t, err)

	v, _ := out.Value(keys[0])
	assert.InDelta(t, 110, v, 1e-9) // relative: 100·(1+0.1)
	v, _ = out.Value(keys[1])
	assert.InDelta(t, 2.5, v, 1e-9)
	v, _ = out.Value(keys[2])
	assert.InDelta(t, 1.7, v, 1e-9)
	v, _ = out.Value(optics.Key{Kind: optics.DispY, Location: "BPM1"})
	assert.Equal(t, 0.01, v)

	// base untouched
	v, _ = base.Value(keys[1])
	assert.Equal(t, 1.5, v)
}

func TestLinear_Curvature(t *testing.T) {
	base, keys := newBase(t)
	sens, err := matrix.NewDenseRows([][]float64{{0}, {1}, {0}})
	require.NoError(t, err)
	b, err := model.NewLinear(base, keys, []string{"k"}, sens, model.WithCurvature(0.5))
	require.NoError(t, err)

	c := model.NewCorrection("k")
	c.Set("k", 0.2)
	out, err := b.ApplyCorrection(context.Background(), c)
	require.NoError(t, err)
	v, _ := out.Value(keys[1])
	assert.InDelta(t, 1.5+0.2+0.5*0.04, v, 1e-12)
}

func TestLinear_Perturb(t *testing.T) {
	base, keys := newBase(t)
	sens, err := matrix.NewDenseRows([][]float64{{0}, {3}, {0}})
	require.NoError(t, err)
	b, err := model.NewLinear(base, keys, []string{"k"}, sens)
	require.NoError(t, err)

	out, err := b.PerturbVariable(context.Background(), model.NewCorrection("k"), "k", 1e-3)
	require.NoError(t, err)
	v, _ := out.Value(keys[1])
	assert.InDelta(t, 1.503, v, 1e-12)

	_, err = b.PerturbVariable(context.Background(), model.Correction{}, "nope", 1)
	require.ErrorIs(t, err, model.ErrUnknownVariable)
}

func TestLinear_Errors(t *testing.T) {
	base, keys := newBase(t)
	sens, err := matrix.NewDenseRows([][]float64{{1}, {1}})
	require.NoError(t, err)
	_, err = model.NewLinear(base, keys, []string{"k"}, sens)
	require.ErrorIs(t, err, model.ErrLengthMismatch)

	sens, err = matrix.NewDenseRows([][]float64{{1}})
	require.NoError(t, err)
	_, err = model.NewLinear(base, []optics.Key{{Kind: optics.BetaY, Location: "X"}}, []string{"k"}, sens)
	require.ErrorIs(t, err, optics.ErrMissingObservable)

	sens, err = matrix.NewDenseRows([][]float64{{1}, {1}, {1}})
	require.NoError(t, err)
	b, err := model.NewLinear(base, keys, []string{"k"}, sens)
	require.NoError(t, err)
	c := model.NewCorrection("other")
	_, err = b.ApplyCorrection(context.Background(), c)
	require.ErrorIs(t, err, model.ErrUnknownVariable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.ApplyCorrection(ctx, model.NewCorrection("k"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCorrection_Ordering(t *testing.T) {
	var c model.Correction
	c.Add("b", 1)
	c.Add("a", 2)
	c.Add("b", 0.5)
	require.Equal(t, []string{"b", "a"}, c.Names())
	require.Equal(t, []float64{1.5, 2}, c.Values())
	require.Equal(t, []string{"a", "b"}, c.Sorted())
	require.Equal(t, "b=1.5, a=2", c.String())

	n := c.Negate()
	v, _ := n.Get("a")
	require.Equal(t, -2.0, v)
	v, _ = c.Get("a")
	require.Equal(t, 2.0, v)

	require.ErrorIs(t, c.AddVector([]string{"a"}, nil), model.ErrLengthMismatch)
	require.NoError(t, c.AddVector([]string{"a", "c"}, []float64{1, 1}))
	require.Equal(t, []float64{1.5, 3, 1}, c.Values())
}
