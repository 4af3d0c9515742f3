package ear

import "math"

// runningStats is a Welford accumulator: single pass, no history replay,
// no catastrophic cancellation.
type runningStats struct {
	n    int
	mean float64
	m2   float64 // sum of squared deviations from the running mean
}

// add records x.
// n ← n+1; δ ← x−μ; μ ← μ+δ/n; δ2 ← x−μ; M2 ← M2+δ·δ2
func (r *runningStats) add(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	delta2 := x - r.mean
	r.m2 += delta * delta2
}

// variance returns the n-1 sample variance, or 0 below two samples.
func (r *runningStats) variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

func (r *runningStats) stdDev() float64 {
	return math.Sqrt(r.variance())
}

// sampleMeanStdDev returns the mean and n-1 standard deviation of xs.
// The standard deviation is 0 for fewer than two values.
func sampleMeanStdDev(xs []float64) (mean, stdDev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}
