package ear

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultWindowSize is the rolling window used when TimelineConfig leaves it zero.
const DefaultWindowSize = 20

// TimelinePoint is one answered comparison as seen by the timeline.
type TimelinePoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Magnitude     float64   `json:"magnitude"` // absolute cent offset
	Correct       bool      `json:"correct"`
	ReferenceNote MIDINote  `json:"reference_note"`
}

// AggregatedPoint summarizes all points falling in one calendar period.
type AggregatedPoint struct {
	PeriodStart   time.Time `json:"period_start"`
	MeanMagnitude float64   `json:"mean_magnitude"`
	TrialCount    int       `json:"trial_count"`
	CorrectCount  int       `json:"correct_count"`
}

// SeriesPoint is one value of a rolling series, keyed by bucket start.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimelineConfig configures a Timeline. Zero values select defaults.
type TimelineConfig struct {
	// WindowSize is the number of buckets in the rolling window.
	// Zero means DefaultWindowSize.
	WindowSize int `yaml:"window_size"`

	// Period is the bucket size. Zero means Day.
	Period Period `yaml:"period"`

	// Location defines calendar boundaries. Nil means time.Local.
	Location *time.Location `yaml:"-"`
}

// Timeline buckets comparison history by calendar period and smooths the
// per-bucket means with a trailing window.
//
// Every update recomputes the aggregation from all points.
//
// A Timeline is safe for concurrent use.
type Timeline struct {
	window int
	period Period
	loc    *time.Location

	mu         sync.RWMutex
	points     []TimelinePoint
	aggregated []AggregatedPoint
}

// Compile-time interface checks.
var (
	_ ComparisonObserver = (*Timeline)(nil)
	_ Resettable         = (*Timeline)(nil)
)

// NewTimeline builds a timeline seeded from records, which may be in any order.
func NewTimeline(cfg TimelineConfig, records []ComparisonRecord) (*Timeline, error) {
	if cfg.WindowSize < 0 {
		return nil, errors.Wrapf(ErrInvalidSettings, "timeline window size %d", cfg.WindowSize)
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.Period == 0 {
		cfg.Period = Day
	}
	if !cfg.Period.IsValid() {
		return nil, errors.Wrapf(ErrInvalidSettings, "timeline period %d", int(cfg.Period))
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	t := &Timeline{
		window: cfg.WindowSize,
		period: cfg.Period,
		loc:    cfg.Location,
		points: make([]TimelinePoint, 0, len(records)),
	}
	for _, r := range records {
		t.points = append(t.points, TimelinePoint{
			Timestamp:     r.Timestamp,
			Magnitude:     r.Magnitude(),
			Correct:       r.Correct,
			ReferenceNote: r.ReferenceNote,
		})
	}
	t.aggregate()
	return t, nil
}

// Add appends a point and re-aggregates.
func (t *Timeline) Add(p TimelinePoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, p)
	t.aggregate()
}

// ComparisonCompleted implements ComparisonObserver.
func (t *Timeline) ComparisonCompleted(c CompletedComparison) error {
	t.Add(TimelinePoint{
		Timestamp:     c.Timestamp,
		Magnitude:     c.Comparison.CentDifference(),
		Correct:       c.IsCorrect(),
		ReferenceNote: c.Comparison.Reference,
	})
	return nil
}

// Points returns a copy of the raw points in arrival order.
func (t *Timeline) Points() []TimelinePoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]TimelinePoint(nil), t.points...)
}

// Aggregated returns a copy of the buckets, ascending by period start.
func (t *Timeline) Aggregated() []AggregatedPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]AggregatedPoint(nil), t.aggregated...)
}

// RollingMean returns, for each bucket i, the mean of bucket means over
// buckets max(0, i-W+1)..i.
func (t *Timeline) RollingMean() []SeriesPoint {
	return t.rolling(func(xs []float64) float64 {
		mean, _ := sampleMeanStdDev(xs)
		return mean
	})
}

// RollingStdDev is RollingMean with the n-1 standard deviation; windows of
// one bucket yield 0.
func (t *Timeline) RollingStdDev() []SeriesPoint {
	return t.rolling(func(xs []float64) float64 {
		_, sd := sampleMeanStdDev(xs)
		return sd
	})
}

func (t *Timeline) rolling(reduce func([]float64) float64) []SeriesPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.aggregated) == 0 {
		return nil
	}
	means := make([]float64, len(t.aggregated))
	for i, a := range t.aggregated {
		means[i] = a.MeanMagnitude
	}
	out := make([]SeriesPoint, len(means))
	for i := range means {
		lo := max(0, i-t.window+1)
		out[i] = SeriesPoint{Time: t.aggregated[i].PeriodStart, Value: reduce(means[lo : i+1])}
	}
	return out
}

// Reset drops all points and buckets.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = nil
	t.aggregated = nil
}

// aggregate rebuilds t.aggregated from t.points. Caller holds mu.
func (t *Timeline) aggregate() {
	if len(t.points) == 0 {
		t.aggregated = nil
		return
	}
	type bucket struct {
		start   time.Time
		sum     float64
		n       int
		correct int
	}
	byStart := make(map[int64]*bucket)
	for _, p := range t.points {
		start := t.period.Start(p.Timestamp, t.loc)
		key := start.UnixNano()
		b, ok := byStart[key]
		if !ok {
			b = &bucket{start: start}
			byStart[key] = b
		}
		b.sum += p.Magnitude
		b.n++
		if p.Correct {
			b.correct++
		}
	}

	agg := make([]AggregatedPoint, 0, len(byStart))
	for _, b := range byStart {
		agg = append(agg, AggregatedPoint{
			PeriodStart:   b.start,
			MeanMagnitude: b.sum / float64(b.n),
			TrialCount:    b.n,
			CorrectCount:  b.correct,
		})
	}
	sort.Slice(agg, func(i, j int) bool {
		return agg[i].PeriodStart.Before(agg[j].PeriodStart)
	})
	t.aggregated = agg
}
