package optics_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/katalvlaran/opticorr/optics"
)

// DifferencerSuite exercises residual semantics on a small two-BPM lattice.
type DifferencerSuite struct {
	suite.Suite
	model *optics.Frame
	meas  *optics.Frame
}

func (s *DifferencerSuite) SetupTest() {
	s.model = optics.NewFrame()
	s.meas = optics.NewFrame()
	add := func(f *optics.Frame, k optics.Kind, loc string, v float64) {
		require.NoError(s.T(), f.Add(optics.Key{Kind: k, Location: loc}, optics.NewEntry(v, 0.01)))
	}
	add(s.model, optics.PhaseX, "BPM1", 0.98)
	add(s.model, optics.PhaseX, "BPM2", 0.30)
	add(s.model, optics.BetaX, "BPM1", 100)
	add(s.model, optics.BetaX, "BPM2", 50)
	add(s.model, optics.F1001R, "BPM1", 0.01)
	s.model.SetTunes(0.28, 0.31)

	add(s.meas, optics.PhaseX, "BPM1", 0.02)
	add(s.meas, optics.PhaseX, "BPM2", 0.35)
	add(s.meas, optics.BetaX, "BPM2", 55)
	add(s.meas, optics.BetaX, "BPM1", 90)
	add(s.meas, optics.F1001R, "BPM1", 0.03)
	s.meas.SetTunes(0.29, 0.30)
}

func (s *DifferencerSuite) TestKindSemanticsAndOrder() {
	res, err := optics.Diff(s.model, s.meas, []optics.Kind{optics.BetaX, optics.PhaseX, optics.Tune, optics.F1001R})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 7, res.Len())

	want := []struct {
		key optics.Key
		val float64
	}{
		{optics.Key{Kind: optics.BetaX, Location: "BPM2"}, 0.1},
		{optics.Key{Kind: optics.BetaX, Location: "BPM1"}, -0.1},
		{optics.Key{Kind: optics.PhaseX, Location: "BPM1"}, 0.04},
		{optics.Key{Kind: optics.PhaseX, Location: "BPM2"}, 0.05},
		{optics.Key{Kind: optics.Tune, Location: optics.TuneX}, 0.01},
		{optics.Key{Kind: optics.Tune, Location: optics.TuneY}, -0.01},
		{optics.Key{Kind: optics.F1001R, Location: "BPM1"}, 0.02},
	}
	for i, w := range want {
		require.Equal(s.T(), w.key, res.Keys[i])
		require.InDelta(s.T(), w.val, res.Values[i], 1e-12, "row %d (%s)", i, w.key)
		require.Equal(s.T(), 1.0, res.Weights[i])
	}
}

func (s *DifferencerSuite) TestMissingKindInMeasurement() {
	_, err := optics.Diff(s.model, s.meas, []optics.Kind{optics.DispX})
	require.ErrorIs(s.T(), err, optics.ErrMissingObservable)

	var moe *optics.MissingObservableError
	require.True(s.T(), errors.As(err, &moe))
	require.Equal(s.T(), "measurement", moe.Source)
	require.Equal(s.T(), optics.DispX, moe.Key.Kind)
}

func (s *DifferencerSuite) TestMissingLocationInModel() {
	require.NoError(s.T(), s.meas.Add(optics.Key{Kind: optics.PhaseX, Location: "BPM3"}, optics.NewEntry(0.1, 0)))
	_, err := optics.Diff(s.model, s.meas, []optics.Kind{optics.PhaseX})
	var moe *optics.MissingObservableError
	require.True(s.T(), errors.As(err, &moe))
	require.Equal(s.T(), optics.Key{Kind: optics.PhaseX, Location: "BPM3"}, moe.Key)
	require.Equal(s.T(), "model", moe.Source)
}

func (s *DifferencerSuite) TestOptionalKindsAreSkipped() {
	require.NoError(s.T(), s.meas.Add(optics.Key{Kind: optics.PhaseX, Location: "BPM3"}, optics.NewEntry(0.1, 0)))
	d := optics.NewDifferencer(
		optics.WithOptional(optics.PhaseX, optics.DispX),
		optics.WithLogger(zaptest.NewLogger(s.T())),
	)
	res, err := d.Diff(s.model, s.meas, []optics.Kind{optics.DispX, optics.PhaseX})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 2, res.Len())
}

func (s *DifferencerSuite) TestWeights() {
	d := optics.NewDifferencer(
		optics.WithParamWeights(map[optics.Kind]float64{optics.PhaseX: 2}),
		optics.WithErrorbars(true),
	)
	res, err := d.Diff(s.model, s.meas, []optics.Kind{optics.PhaseX})
	require.NoError(s.T(), err)
	// 2 (param) × 1 (entry) / 0.01 (error)
	require.InDelta(s.T(), 200, res.Weights[0], 1e-9)
	require.InDelta(s.T(), math.Sqrt((8*8+10*10)/2.0), res.WeightedRMS(), 1e-9)
}

func (s *DifferencerSuite) TestErrorbarsKeepZeroErrorTunes() {
	d := optics.NewDifferencer(optics.WithErrorbars(true))
	res, err := d.Diff(s.model, s.meas, []optics.Kind{optics.PhaseX, optics.Tune})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 4, res.Len())
	// tunes carry no error and take the smallest phase error (0.01)
	require.InDeltaSlice(s.T(), []float64{100, 100, 100, 100}, res.Weights, 1e-9)

	// without any usable error the weights stay raw
	res, err = d.Diff(s.model, s.meas, []optics.Kind{optics.Tune})
	require.NoError(s.T(), err)
	require.Equal(s.T(), []float64{1, 1}, res.Weights)

	keys := []optics.Key{{Kind: optics.Tune, Location: optics.TuneX}, {Kind: optics.PhaseX, Location: "BPM2"}}
	byKey, err := d.DiffKeys(s.model, s.meas, keys)
	require.NoError(s.T(), err)
	require.InDeltaSlice(s.T(), []float64{100, 100}, byKey.Weights, 1e-9)
}

func TestDifferencerSuite(t *testing.T) {
	suite.Run(t, new(DifferencerSuite))
}

func TestWeightedRMS(t *testing.T) {
	require.Equal(t, 0.0, optics.WeightedRMS(nil, nil))
	require.InDelta(t, math.Sqrt(12.5), optics.WeightedRMS([]float64{3, 4}, nil), 1e-12)
	require.InDelta(t, 0, optics.WeightedRMS([]float64{3, 4}, []float64{0, 0}), 1e-12)
}

func TestResiduals_SubsetAndByKind(t *testing.T) {
	r := &optics.Residuals{
		Keys: []optics.Key{
			{Kind: optics.BetaX, Location: "A"},
			{Kind: optics.DispX, Location: "A"},
			{Kind: optics.BetaX, Location: "B"},
		},
		Values:  []float64{1, 2, 3},
		Errors:  []float64{0, 0, 0},
		Weights: []float64{1, 1, 1},
	}
	sub := r.Subset([]int{2, 0})
	require.Equal(t, []float64{3, 1}, sub.Values)
	byKind := r.RMSByKind()
	require.InDelta(t, math.Sqrt(5), byKind[optics.BetaX], 1e-12)
	require.InDelta(t, 2, byKind[optics.DispX], 1e-12)
	require.Equal(t, []float64{1, 2, 3}, r.Weighted())
}

func TestDiffKeys(t *testing.T) {
	model := optics.NewFrame()
	meas := optics.NewFrame()
	a := optics.Key{Kind: optics.DispX, Location: "A"}
	b := optics.Key{Kind: optics.PhaseY, Location: "B"}
	require.NoError(t, model.Add(a, optics.NewEntry(1, 0)))
	require.NoError(t, model.Add(b, optics.NewEntry(0.1, 0)))
	require.NoError(t, meas.Add(a, optics.NewEntry(1.5, 0)))
	require.NoError(t, meas.Add(b, optics.NewEntry(0.9, 0)))

	res, err := optics.NewDifferencer().DiffKeys(model, meas, []optics.Key{b, a})
	require.NoError(t, err)
	require.Equal(t, []optics.Key{b, a}, res.Keys)
	require.InDelta(t, -0.2, res.Values[0], 1e-12)
	require.InDelta(t, 0.5, res.Values[1], 1e-12)

	_, err = optics.NewDifferencer().DiffKeys(model, meas, []optics.Key{{Kind: optics.DispX, Location: "Z"}})
	require.ErrorIs(t, err, optics.ErrMissingObservable)
}
