// Package opticorr computes global optics corrections for circular
// accelerators: given measured and modelled optics, it finds the corrector
// strength changes that bring the model onto the measurement.
//
// 🚀 What is opticorr?
//
//	An iterative least-squares corrector built from small packages:
//		• optics      – observable frames, keys and residuals (phase folding, relative beta)
//		• response    – labelled response matrices, category selection, finite-difference refresh
//		• solver      – weighted truncated-SVD pseudoinverse solve
//		• correction  – the iteration controller (INITIAL → ITERATING → DONE | FAILED)
//		• model       – correction vectors and model-engine builders
//		• accelerator – machine variants (LHC, PSB, YAML-defined) and script rendering
//		• store       – SQLite archive of response matrices and runs
//		• matrix      – dense numeric layer (gonum-backed SVD)
//
// Each step of a run:
//
//	r  = W · (measurement − model)       per observable, phases folded into (−½, ½]
//	δ  = pinv(W·R, cutoff) · r            singular values below cutoff·σmax are dropped
//	Σδ = Σδ + δ;  model = engine(Σδ)      optionally followed by a refresh of R
//
// The opticorr command (cmd/opticorr) wires these packages to YAML
// configuration, zap logging and the run archive.
package opticorr
