package ear

import "sync"

const (
	// MinimumTrendSamples is the number of comparisons needed before a trend
	// is reported.
	MinimumTrendSamples = 20

	// trendChangeThreshold is the relative change between halves that counts
	// as movement. The boundary itself is Stable.
	trendChangeThreshold = 0.05
)

// TrendAnalyzer classifies the discrimination threshold as improving, stable
// or declining by comparing the mean magnitude of the earlier and later
// halves of the comparison history.
//
// A TrendAnalyzer is safe for concurrent use.
type TrendAnalyzer struct {
	mu         sync.RWMutex
	magnitudes []float64 // chronological
	trend      Trend     // 0 when undefined
}

// Compile-time interface checks.
var (
	_ ComparisonObserver = (*TrendAnalyzer)(nil)
	_ Resettable         = (*TrendAnalyzer)(nil)
)

// NewTrendAnalyzer seeds the analyzer from records sorted oldest first.
func NewTrendAnalyzer(records []ComparisonRecord) *TrendAnalyzer {
	a := &TrendAnalyzer{magnitudes: make([]float64, 0, len(records))}
	for _, r := range records {
		a.magnitudes = append(a.magnitudes, r.Magnitude())
	}
	a.recompute()
	return a
}

// Trend returns the current classification. ok is false below
// MinimumTrendSamples.
func (a *TrendAnalyzer) Trend() (t Trend, ok bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.trend, a.trend.IsValid()
}

// SampleCount returns the number of magnitudes seen.
func (a *TrendAnalyzer) SampleCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.magnitudes)
}

// Add appends one magnitude and recomputes the trend.
func (a *TrendAnalyzer) Add(magnitude float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.magnitudes = append(a.magnitudes, magnitude)
	a.recompute()
}

// Reset clears the history; the trend becomes undefined.
func (a *TrendAnalyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.magnitudes = nil
	a.trend = 0
}

// ComparisonCompleted implements ComparisonObserver.
func (a *TrendAnalyzer) ComparisonCompleted(c CompletedComparison) error {
	a.Add(c.Comparison.CentDifference())
	return nil
}

// recompute classifies the split-half change ratio. Caller holds mu.
// ratio = (laterMean - earlierMean) / earlierMean
func (a *TrendAnalyzer) recompute() {
	a.trend = classifyTrend(a.magnitudes)
}

func classifyTrend(xs []float64) Trend {
	if len(xs) < MinimumTrendSamples {
		return 0
	}
	mid := len(xs) / 2
	earlier, _ := sampleMeanStdDev(xs[:mid])
	later, _ := sampleMeanStdDev(xs[mid:])
	if earlier == 0 {
		return Stable
	}
	ratio := (later - earlier) / earlier
	switch {
	case ratio < -trendChangeThreshold:
		return Improving
	case ratio > trendChangeThreshold:
		return Declining
	default:
		return Stable
	}
}
