// SPDX-License-Identifier: MIT
// Package: response
//
// Purpose:
//   - Recompute a response matrix around the current corrector setting by
//     central finite differences through a model Perturber.
//
// Implementation:
//   - Stage 1: validate delta_k, allocate a rows×vars Dense without NaN policy
//     (relative kinds over a zero model value yield NaN, filtered later).
//   - Stage 2: for each variable, build f(+dk) and f(−dk), difference both
//     against the center frame on exactly the requested rows, and store
//     (d₊ − d₋) / 2dk in the variable's column.
//   - Stage 3: variables run on an errgroup bounded by WithParallelism; each
//     goroutine writes a disjoint column. The first failure cancels the rest.
//
// Complexity:
//   - 2·len(vars) Perturber calls, O(rows·vars) arithmetic.

package response

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/opticorr/matrix"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
)

// Perturber produces model optics for a corrector setting with one variable shifted.
// model.Builder satisfies it.
type Perturber interface {
	PerturbVariable(ctx context.Context, base model.Correction, name string, dk float64) (*optics.Frame, error)
}

// RefreshOption configures Refresh.
type RefreshOption func(*refreshConfig)

type refreshConfig struct {
	parallelism int
	logger      *zap.Logger
}

// WithParallelism bounds the number of variables evaluated concurrently.
// Values below 1 mean 1.
func WithParallelism(n int) RefreshOption {
	return func(c *refreshConfig) {
		if n < 1 {
			n = 1
		}
		c.parallelism = n
	}
}

// WithRefreshLogger sets the logger used for per-variable progress.
func WithRefreshLogger(l *zap.Logger) RefreshOption {
	return func(c *refreshConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Refresh returns a new matrix with rows and vars as labels, computed around
// base with center as the model optics for base.
func Refresh(
	ctx context.Context,
	p Perturber,
	base model.Correction,
	center *optics.Frame,
	rows []optics.Key,
	vars []string,
	deltaK float64,
	opts ...RefreshOption,
) (*Matrix, error) {
	cfg := refreshConfig{parallelism: 1, logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	if !(deltaK > 0) || math.IsInf(deltaK, 0) {
		return nil, fmt.Errorf("response: refresh delta_k=%g: %w", deltaK, ErrInvalidDeltaK)
	}
	if len(rows) == 0 || len(vars) == 0 {
		return nil, &ResponseMatrixFormatError{Reason: "refresh needs at least one row and one variable"}
	}
	n := len(rows) * len(vars)
	plus, err := matrix.NewDenseFrom(len(rows), len(vars), make([]float64, n))
	if err != nil {
		return nil, err
	}
	minus, err := matrix.NewDenseFrom(len(rows), len(vars), make([]float64, n))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	diff := optics.NewDifferencer()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)
	for j, name := range vars {
		j, name := j, name
		g.Go(func() error {
			dp, dm, err := perturbations(gctx, p, diff, base, center, rows, name, deltaK)
			if err != nil {
				return fmt.Errorf("response: refresh %q: %w", name, err)
			}
			cfg.logger.Debug("response column refreshed", zap.String("variable", name))
			// Columns are disjoint, so concurrent writers never share an element.
			if err = plus.SetCol(j, dp); err != nil {
				return err
			}

			return minus.SetCol(j, dm)
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	// R = (D₊ − D₋) / 2δk
	spread, err := matrix.Sub(plus, minus)
	if err != nil {
		return nil, fmt.Errorf("response: refresh: %w", err)
	}
	scaled, err := matrix.Scale(spread, 1/(2*deltaK))
	if err != nil {
		return nil, fmt.Errorf("response: refresh: %w", err)
	}
	data, ok := scaled.(*matrix.Dense)
	if !ok {
		return nil, fmt.Errorf("response: refresh: unexpected %T", scaled)
	}
	cfg.logger.Info("response matrix refreshed",
		zap.Int("rows", len(rows)),
		zap.Int("variables", len(vars)),
		zap.Float64("delta_k", deltaK),
		zap.Duration("elapsed", time.Since(start)),
	)

	return New(rows, vars, data)
}

// perturbations returns the differences of the +dk and -dk models from center
// over rows, in row order.
func perturbations(
	ctx context.Context,
	p Perturber,
	diff *optics.Differencer,
	base model.Correction,
	center *optics.Frame,
	rows []optics.Key,
	name string,
	dk float64,
) ([]float64, []float64, error) {
	plus, err := p.PerturbVariable(ctx, base, name, dk)
	if err != nil {
		return nil, nil, err
	}
	minus, err := p.PerturbVariable(ctx, base, name, -dk)
	if err != nil {
		return nil, nil, err
	}
	dp, err := diff.DiffKeys(center, plus, rows)
	if err != nil {
		return nil, nil, err
	}
	dm, err := diff.DiffKeys(center, minus, rows)
	if err != nil {
		return nil, nil, err
	}

	return dp.Values, dm.Values, nil
}
