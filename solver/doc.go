// Package solver implements the weighted truncated-SVD least-squares step of
// global optics correction.
//
// Given a response matrix R (observables × variables), a residual vector r
// and per-observable weights w, Solve returns
//
//	δ = (W·R)⁺ · (W·r),  W = diag(w)
//
// where ⁺ is the Moore–Penrose pseudoinverse with every singular value below
// cutoff·max(s) discarded. A zero weight removes an observable from the fit
// without resizing R. Solve is a pure function: inputs are never mutated.
package solver
