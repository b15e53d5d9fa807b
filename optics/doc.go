// Package optics models accelerator optics observables and computes the
// residuals between a model and a measurement.
//
// An observable is keyed by (Kind, Location): the parameter kind (phase
// advance, beta, dispersion, tune, coupling term component) and the BPM name,
// or Q1/Q2 for tunes. A Frame holds one Entry (value, error, weight) per key in
// deterministic insertion order.
//
// The Differencer applies per-kind semantics:
//
//	linear   (DX, DY, NDX, F1001R/I/A, F1010R/I/A): meas − model
//	relative (BETX, BETY):                          (meas − model) / model
//	angular  (PHASEX, PHASEY, Q, F1001P, F1010P):   Fold(meas − model)
//
// Fold maps phase-like differences, defined modulo 1, into [-0.5, 0.5]. A raw
// difference of exactly ±0.5 is left unchanged.
package optics
