package response_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/response"
)

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

func linearBuilder(t *testing.T) (*model.Linear, []optics.Key, *optics.Frame) {
	t.Helper()
	base := optics.NewFrame()
	rows := []optics.Key{
		{Kind: optics.DispX, Location: "A"},
		{Kind: optics.BetaX, Location: "A"},
		{Kind: optics.PhaseX, Location: "A"},
	}
	require.NoError(t, base.Add(rows[0], optics.NewEntry(1, 0)))
	require.NoError(t, base.Add(rows[1], optics.NewEntry(50, 0)))
	require.NoError(t, base.Add(rows[2], optics.NewEntry(0.49, 0)))
	sens, err := matrix.NewDenseRows([][]float64{
		{2, -1},
		{0.3, 0},
		{0, 4},
	})
	require.NoError(t, err)
	b, err := model.NewLinear(base, rows, []string{"k1", "k2"}, sens)
	require.NoError(t, err)

	return b, rows, base
}

func TestRefresh_RecoversSensitivity(t *testing.T) {
	b, rows, base := linearBuilder(t)
	for _, par := range []int{1, 2, 8} {
		m, err := response.Refresh(context.Background(), b, model.NewCorrection("k1", "k2"), base, rows,
			[]string{"k1", "k2"}, 1e-4,
			response.WithParallelism(par),
			response.WithRefreshLogger(zaptest.NewLogger(t)),
		)
		require.NoError(t, err)
		want, err := matrix.NewDenseRows([][]float64{{2, -1}, {0.3, 0}, {0, 4}})
		require.NoError(t, err)
		ok, err := matrix.AllClose(m.Data(), want, 0, 1e-6)
		require.NoError(t, err)
		require.True(t, ok, "parallelism=%d got %v", par, m.Data())
		require.Equal(t, []string{"k1", "k2"}, m.Cols())
	}
}

type failingPerturber struct {
	calls atomic.Int32
}

var errEngine = errors.New("engine crashed")

func (f *failingPerturber) PerturbVariable(ctx context.Context, _ model.Correction, name string, _ float64) (*optics.Frame, error) {
	f.calls.Add(1)
	if name == "bad" {
		return nil, errEngine
	}
	<-ctx.Done()

	return nil, ctx.Err()
}

func TestRefresh_FailureCancelsSiblings(t *testing.T) {
	p := &failingPerturber{}
	_, err := response.Refresh(context.Background(), p, model.Correction{}, optics.NewFrame(),
		keys("A"), []string{"slow1", "bad", "slow2"}, 1e-3, response.WithParallelism(3))
	require.ErrorIs(t, err, errEngine)
}

func TestRefresh_InvalidArgs(t *testing.T) {
	b, rows, base := linearBuilder(t)
	for _, dk := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := response.Refresh(context.Background(), b, model.Correction{}, base, rows, []string{"k1"}, dk)
		require.ErrorIs(t, err, response.ErrInvalidDeltaK)
	}
	_, err := response.Refresh(context.Background(), b, model.Correction{}, base, nil, []string{"k1"}, 1e-3)
	require.ErrorIs(t, err, response.ErrResponseMatrixFormat)
}
