// Package matrix provides the dense numeric layer used by the correction
// solver: a row-major Dense matrix, central validators, deterministic kernels
// (Mul, Transpose, MatVec, Scale, row/column scaling) and a gonum-backed
// singular value decomposition with a truncated pseudoinverse.
//
// Every public function validates its inputs and returns sentinel errors
// (see errors.go) wrapped with an operation tag, so callers match them with
// errors.Is. No function panics on user-triggered conditions.
//
// Response matrices in accelerator optics are tall (observables × variables)
// and frequently rank deficient; PseudoInverse discards singular values below
// a relative cutoff instead of failing on them.
package matrix
