package ear

import "math"

// Kazez step coefficients. The adaptive strategy narrows faster than the
// published 0.05 so multi-note training converges in fewer trials.
const (
	kazezNarrowing    = 0.05
	adaptiveNarrowing = 0.08
	kazezWidening     = 0.09
)

// kazezNarrow returns the next difficulty after a correct answer.
// N = P × (1 − k√P)
func kazezNarrow(p, k float64) float64 {
	return p * (1 - k*math.Sqrt(p))
}

// kazezWiden returns the next difficulty after a wrong answer.
// N = P × (1 + k√P)
func kazezWiden(p, k float64) float64 {
	return p * (1 + k*math.Sqrt(p))
}

// nextDifficulty applies the narrowing or widening step to the previous
// cent difference and clamps it to the settings bounds.
func nextDifficulty(p float64, correct bool, narrowing float64, s Settings) float64 {
	var n float64
	if correct {
		n = kazezNarrow(p, narrowing)
	} else {
		n = kazezWiden(p, kazezWidening)
	}
	return clampCents(n, s)
}

// clampCents limits c to [MinCentDifference, MaxCentDifference].
func clampCents(c float64, s Settings) float64 {
	return math.Min(math.Max(c, s.MinCentDifference), s.MaxCentDifference)
}
