// SPDX-License-Identifier: MIT
// Package: correction
//
// Purpose:
//   - Controller drives one global-correction run for a fixed number of iterations.
//
// Implementation:
//   - Stage 1 (INITIAL): validate input; select response columns for the
//     requested categories; fix the variable order from the selection.
//   - Stage 2 (ITERATING), per step n:
//       a. residual = Diff(model, measurement) over the requested kinds;
//       b. align response rows to the residual keys, drop non-finite rows;
//       c. δ = Solve(R, r, w, cutoff); cumulative' = cumulative + δ;
//       d. model = Builder.ApplyCorrection(cumulative'); commit cumulative';
//       e. optionally Refresh R around the new model (skipped after the last step);
//       f. hand an Artifact to OnIteration.
//   - Stage 3: residual of the last model; state DONE.
//
// Behavior highlights:
//   - Any failure moves the run to FAILED with the cumulative correction of
//     the last committed step. Nothing is retried.
//   - Builder, hook and context errors match ErrCollaboratorFailure.

package correction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/katalvlaran/opticorr/logging"
	"github.com/katalvlaran/opticorr/model"
	"github.com/katalvlaran/opticorr/optics"
	"github.com/katalvlaran/opticorr/response"
	"github.com/katalvlaran/opticorr/solver"
)

// DefaultDeltaK is the finite-difference step used when Input.DeltaK is zero.
const DefaultDeltaK = 2e-5

// Input is everything one run needs.
type Input struct {
	Measurement *optics.Frame
	Model       *optics.Frame // optics of the uncorrected machine
	Response    *response.Matrix
	Builder     model.Builder
	// Catalog resolves VariableCategories; nil allows literal column names only.
	Catalog            response.Catalog
	VariableCategories []string
	OpticsParams       []optics.Kind
	// Weights are parallel to OpticsParams; nil means 1 for every kind.
	Weights        []float64
	OptionalParams []optics.Kind
	UseErrorbars   bool
	SVDCutoff      float64
	Iterations     int
	UpdateResponse bool
	DeltaK         float64
	Parallelism    int

	Logger      *zap.Logger
	OnIteration func(ctx context.Context, a Artifact) error
}

// Snapshot is the residual state of one model.
type Snapshot struct {
	Iteration int
	Residual  *optics.Residuals
	RMS       float64
	RMSByKind map[optics.Kind]float64
	Dropped   []optics.Key
}

// Artifact is published after every committed step.
type Artifact struct {
	RunID      string
	Iteration  int
	Model      *optics.Frame
	Delta      model.Correction
	Correction model.Correction
	Residual   Snapshot
	Rank       int
}

// Result is the outcome of a run. It is populated on failure too.
type Result struct {
	RunID      string
	State      State
	Correction model.Correction
	// Snapshots[n] is the residual at the start of iteration n+1.
	Snapshots []Snapshot
	// Final is the residual after the last step; nil unless State is DONE.
	Final *Snapshot
	Model *optics.Frame
	Err   error
}

// Controller runs a single correction. It is not reusable.
type Controller struct {
	in     Input
	runID  string
	state  State
	logger *zap.Logger
	diff   *optics.Differencer
}

// NewController prepares a run with a fresh run ID and a run-scoped logger.
func NewController(in Input) *Controller {
	id := uuid.NewString()
	c := &Controller{
		in:     in,
		runID:  id,
		state:  StateInitial,
		logger: logging.ForRun(in.Logger, id),
	}

	return c
}

// RunGlobalCorrection is NewController(in).Run(ctx).
func RunGlobalCorrection(ctx context.Context, in Input) (Result, error) {
	return NewController(in).Run(ctx)
}

// RunID returns the identifier attached to every log line and artifact.
func (c *Controller) RunID() string { return c.runID }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

func (c *Controller) validate() error {
	in := c.in
	if in.Iterations < 1 {
		return fmt.Errorf("iterations=%d: %w", in.Iterations, ErrInvalidIterationCount)
	}
	switch {
	case in.Measurement == nil:
		return fmt.Errorf("%w: no measurement", ErrInvalidInput)
	case in.Model == nil:
		return fmt.Errorf("%w: no model", ErrInvalidInput)
	case in.Response == nil:
		return fmt.Errorf("%w: no response matrix", ErrInvalidInput)
	case in.Builder == nil:
		return fmt.Errorf("%w: no model builder", ErrInvalidInput)
	case len(in.OpticsParams) == 0:
		return fmt.Errorf("%w: no optics parameters", ErrInvalidInput)
	case in.Weights != nil && len(in.Weights) != len(in.OpticsParams):
		return fmt.Errorf("%w: %d weights for %d optics parameters", ErrInvalidInput, len(in.Weights), len(in.OpticsParams))
	}

	return nil
}

func (c *Controller) differencer() *optics.Differencer {
	pw := make(map[optics.Kind]float64, len(c.in.Weights))
	for i, w := range c.in.Weights {
		pw[c.in.OpticsParams[i]] = w
	}

	return optics.NewDifferencer(
		optics.WithParamWeights(pw),
		optics.WithOptional(c.in.OptionalParams...),
		optics.WithErrorbars(c.in.UseErrorbars),
		optics.WithLogger(c.logger),
	)
}

func (c *Controller) fail(res *Result, iteration int, stage Stage, err error) (Result, error) {
	c.state = StateFailed
	se := &StepError{Iteration: iteration, Stage: stage, Err: err}
	res.State = StateFailed
	res.Err = se
	c.logger.Error("correction failed",
		zap.Int("iteration", iteration),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)

	return *res, se
}

// Run executes every configured iteration.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: c.runID, State: StateInitial}
	if c.state != StateInitial {
		return c.fail(&res, 0, StageSelect, fmt.Errorf("%w: controller already used", ErrInvalidInput))
	}
	if err := c.validate(); err != nil {
		return c.fail(&res, 0, StageSelect, err)
	}

	R, err := response.Select(c.in.Response, c.in.Catalog, c.in.VariableCategories)
	if err != nil {
		return c.fail(&res, 0, StageSelect, err)
	}
	vars := R.Cols()
	cumulative := model.NewCorrection(vars...)
	current := c.in.Model
	c.diff = c.differencer()
	res.Correction = cumulative.Clone()
	res.Model = current

	c.state = StateIterating
	res.State = StateIterating
	c.logger.Info("correction started",
		zap.Strings("variables", vars),
		zap.Int("iterations", c.in.Iterations),
		zap.Float64("svd_cut", c.in.SVDCutoff),
		zap.Bool("update_response", c.in.UpdateResponse),
	)

	for n := 1; n <= c.in.Iterations; n++ {
		log := c.logger.With(zap.Int("iteration", n))
		start := time.Now()
		if err = ctx.Err(); err != nil {
			return c.fail(&res, n, StageDiff, collaborator(err))
		}

		snap, rows, stage, err := c.residual(R, current, n)
		if err != nil {
			return c.fail(&res, n, stage, err)
		}
		res.Snapshots = append(res.Snapshots, snap)

		sol, err := solver.SolveDetailed(rows.Data(), snap.Residual.Values, snap.Residual.Weights, c.in.SVDCutoff)
		if err != nil {
			return c.fail(&res, n, StageSolve, err)
		}
		delta, err := model.CorrectionFrom(vars, sol.Delta)
		if err != nil {
			return c.fail(&res, n, StageSolve, err)
		}
		next := cumulative.Clone()
		if err = next.AddVector(vars, sol.Delta); err != nil {
			return c.fail(&res, n, StageSolve, err)
		}

		updated, err := c.in.Builder.ApplyCorrection(ctx, next)
		if err != nil {
			return c.fail(&res, n, StageApply, collaborator(err))
		}
		cumulative, current = next, updated
		res.Correction = cumulative.Clone()
		res.Model = current

		if c.in.UpdateResponse && n < c.in.Iterations {
			keys := append(snap.Residual.Keys[:len(snap.Residual.Keys):len(snap.Residual.Keys)], snap.Dropped...)
			R, err = c.refresh(ctx, cumulative, current, keys, vars, log)
			if err != nil {
				return c.fail(&res, n, StageRefresh, collaborator(err))
			}
		}

		if c.in.OnIteration != nil {
			a := Artifact{
				RunID:      c.runID,
				Iteration:  n,
				Model:      current,
				Delta:      delta,
				Correction: cumulative.Clone(),
				Residual:   snap,
				Rank:       sol.Rank,
			}
			if err = c.in.OnIteration(ctx, a); err != nil {
				return c.fail(&res, n, StageArtifact, collaborator(err))
			}
		}

		log.Info("iteration complete",
			zap.Float64("rms", snap.RMS),
			zap.Int("observables", snap.Residual.Len()),
			zap.Int("dropped", len(snap.Dropped)),
			zap.Int("rank", sol.Rank),
			zap.Float64("optimality", sol.Optimality),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	final, _, _, err := c.residual(R, current, c.in.Iterations+1)
	if err != nil {
		return c.fail(&res, c.in.Iterations, StageFinal, err)
	}
	res.Final = &final
	c.state = StateDone
	res.State = StateDone
	c.logger.Info("correction done",
		zap.Float64("initial_rms", res.Snapshots[0].RMS),
		zap.Float64("final_rms", final.RMS),
		zap.String("correction", cumulative.String()),
	)

	return res, nil
}

// residual computes the filtered residual of current and the matching response rows.
func (c *Controller) residual(R *response.Matrix, current *optics.Frame, iteration int) (Snapshot, *response.Matrix, Stage, error) {
	raw, err := c.diff.Diff(current, c.in.Measurement, c.in.OpticsParams)
	if err != nil {
		return Snapshot{}, nil, StageDiff, err
	}
	rows, err := response.Rows(R, raw.Keys)
	if err != nil {
		return Snapshot{}, nil, StageAlign, err
	}
	rows, filtered, dropped, err := response.DropNonFinite(rows, raw)
	if err != nil {
		return Snapshot{}, nil, StageAlign, err
	}
	if len(dropped) > 0 {
		c.logger.Debug("dropped non-finite observables",
			zap.Int("iteration", iteration),
			zap.Int("count", len(dropped)),
		)
	}

	return Snapshot{
		Iteration: iteration,
		Residual:  filtered,
		RMS:       filtered.WeightedRMS(),
		RMSByKind: filtered.RMSByKind(),
		Dropped:   dropped,
	}, rows, "", nil
}

func (c *Controller) refresh(
	ctx context.Context,
	cumulative model.Correction,
	current *optics.Frame,
	keys []optics.Key,
	vars []string,
	log *zap.Logger,
) (*response.Matrix, error) {
	dk := c.in.DeltaK
	if dk == 0 {
		dk = DefaultDeltaK
	}

	return response.Refresh(ctx, c.in.Builder, cumulative, current, keys, vars, dk,
		response.WithParallelism(c.in.Parallelism),
		response.WithRefreshLogger(log),
	)
}
