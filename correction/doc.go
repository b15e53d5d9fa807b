// Package correction runs iterative global optics correction.
//
// A Controller owns one run: it selects the response columns of the requested
// variable categories, then repeats a fixed number of steps
//
//	residual(model, measurement) → solve → cumulative += δ → model = Apply(cumulative)
//
// optionally refreshing the response matrix around each new model. There is
// no convergence test; callers compare the per-iteration residual snapshots.
//
// States move INITIAL → ITERATING → DONE or FAILED. A failed run keeps the
// cumulative correction of the last successful step.
package correction
