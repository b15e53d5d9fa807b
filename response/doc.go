// Package response holds labelled response matrices: rows are observable
// keys, columns are corrector variable names and each element is the
// sensitivity ∂observable/∂variable in the units produced by optics.Diff.
//
// The package covers the full lifecycle of a matrix inside a correction run:
//
//   - Load / Decode / Encode / Save: YAML persistence with strict label checks.
//   - Select: restrict columns to the variables of requested categories.
//   - Rows: align rows to the observable set being corrected.
//   - DropNonFinite: remove rows that cannot enter a solve.
//   - Refresh: recompute the matrix by central finite differences through a
//     model Perturber, optionally evaluating variables in parallel.
//
// Units are not checked. A matrix built for beta in metres used against
// beta-beating residuals silently produces wrong corrections.
package response
