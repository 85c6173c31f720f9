package opt

import "math"

// epsilon keeps the spark count and amplitude ratios finite when every
// individual shares the same fitness.
const epsilon = 10e-10

// rawSparkCount is s_i = m * (fmax - f_i + eps) / (n*fmax - fsum + eps).
func rawSparkCount(m, n, fit, maxFit, sumFit float64) float64 {
	return m * (maxFit - fit + epsilon) / (n*maxFit - sumFit + epsilon)
}

// amplitude is A_i = A * (f_i - fmin + eps) / (fsum - fmin + eps).
func amplitude(a, fit, minFit, sumFit float64) float64 {
	return a * (fit - minFit + epsilon) / (sumFit - minFit + epsilon)
}

// sparkCount clamps a raw spark count into [round(a*m)+1, round(b*m)+1].
// Rounding is half-to-even.
func sparkCount(raw, a, b, m float64) int {
	switch {
	case raw < a*m:
		return int(math.RoundToEven(a*m)) + 1
	case raw > b*m:
		return int(math.RoundToEven(b*m)) + 1
	default:
		return int(math.RoundToEven(raw)) + 1
	}
}

// repair folds an out-of-range coordinate back into [lower, upper] as
// lower + |v| mod (upper - lower). In-range values are returned unchanged.
func repair(v, lower, upper float64) float64 {
	if v >= lower && v <= upper {
		return v
	}
	return lower + math.Mod(math.Abs(v), upper-lower)
}
