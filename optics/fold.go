package optics

import "math"

// Fold maps a difference of a quantity defined modulo 1 into [-0.5, 0.5].
//
// For |d| ≤ 1.5 this is exactly "subtract sign(d) when |d| > 0.5"; a value of
// exactly ±0.5 is returned unchanged. Larger magnitudes are reduced to their
// fractional part first, so Fold(d) ≡ d (mod 1) for every finite d.
// NaN and ±Inf yield NaN.
func Fold(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return math.NaN()
	}
	if math.Abs(d) > 1 {
		d = math.Mod(d, 1)
	}
	if math.Abs(d) > 0.5 {
		d -= math.Copysign(1, d)
	}

	return d
}
