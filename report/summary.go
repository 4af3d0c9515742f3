package report

import (
	"time"

	"github.com/sky-flux/ear"
	"gonum.org/v1/gonum/stat"
)

// WeakSpotCount is the number of notes listed in a Summary.
const WeakSpotCount = 10

// NoteRow is one line of the weak-spot table.
type NoteRow struct {
	Note  ear.MIDINote
	Stats ear.NoteStats
}

// Summary is a point-in-time digest of the training state.
type Summary struct {
	GeneratedAt time.Time

	Comparisons   int
	Accuracy      float64 // fraction of correct answers; 0 without data
	HasThreshold  bool
	ThresholdMean float64 // cents, over trained notes
	ThresholdSD   float64
	Trend         ear.Trend // zero when fewer than ear.MinimumTrendSamples
	HasTrend      bool

	Matchings    int
	MatchingMean float64 // absolute cents
	MatchingSD   float64

	WeakSpots []NoteRow
	Periods   []ear.AggregatedPoint
}

// Summarize collects a Summary. Any of trend and tl may be nil.
func Summarize(now time.Time, p *ear.Profile, trend *ear.TrendAnalyzer, tl *ear.Timeline) Summary {
	s := Summary{GeneratedAt: now}

	s.ThresholdMean, s.HasThreshold = p.OverallMean()
	s.ThresholdSD, _ = p.OverallStdDev()
	s.Matchings = p.MatchingSampleCount()
	s.MatchingMean, _ = p.MatchingMean()
	s.MatchingSD, _ = p.MatchingStdDev()

	for _, n := range p.WeakSpots(WeakSpotCount) {
		s.WeakSpots = append(s.WeakSpots, NoteRow{Note: n, Stats: p.StatsForNote(n)})
	}
	if trend != nil {
		s.Trend, s.HasTrend = trend.Trend()
	}
	if tl != nil {
		s.Periods = tl.Aggregated()
		s.Comparisons, s.Accuracy = accuracy(s.Periods)
	}
	return s
}

// accuracy is the trial-weighted mean of per-period correct rates.
func accuracy(periods []ear.AggregatedPoint) (trials int, rate float64) {
	if len(periods) == 0 {
		return 0, 0
	}
	rates := make([]float64, len(periods))
	weights := make([]float64, len(periods))
	for i, a := range periods {
		trials += a.TrialCount
		weights[i] = float64(a.TrialCount)
		if a.TrialCount > 0 {
			rates[i] = float64(a.CorrectCount) / float64(a.TrialCount)
		}
	}
	if trials == 0 {
		return 0, 0
	}
	return trials, stat.Mean(rates, weights)
}
