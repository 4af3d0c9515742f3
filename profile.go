package ear

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DiscriminationProfile is the view of a Profile a comparison strategy and
// session need. *Profile implements it.
type DiscriminationProfile interface {
	WeakSpots(n int) []MIDINote
	StatsForNote(note MIDINote) NoteStats
	OverallMean() (float64, bool)
	OverallStdDev() (float64, bool)
	AverageThreshold(lo, hi MIDINote) (float64, bool)
	SetDifficulty(note MIDINote, cents float64)
	Reset()
}

// MatchingProfile is the pitch-matching view of a Profile.
type MatchingProfile interface {
	MatchingMean() (float64, bool)
	MatchingStdDev() (float64, bool)
	MatchingSampleCount() int
	ResetMatching()
}

// Profile tracks pitch-discrimination thresholds per MIDI note and a single
// pitch-matching accuracy accumulator. The two are independent: resetting
// one never touches the other.
//
// A Profile is safe for concurrent use.
type Profile struct {
	log *zap.Logger

	mu       sync.RWMutex
	notes    [NoteCount]NoteStats
	matching runningStats // absolute cent error
}

// Compile-time interface checks.
var (
	_ DiscriminationProfile = (*Profile)(nil)
	_ MatchingProfile       = (*Profile)(nil)
	_ ComparisonObserver    = (*Profile)(nil)
	_ PitchMatchingObserver = (*Profile)(nil)
	_ Resettable            = (*Profile)(nil)
)

// NewProfile returns a cold-start profile. A nil logger disables logging.
func NewProfile(log *zap.Logger) *Profile {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Profile{log: log.Named("profile")}
	p.resetNotes()
	return p
}

func (p *Profile) resetNotes() {
	for i := range p.notes {
		p.notes[i] = coldNoteStats()
	}
}

// Replay folds historical records into the profile, oldest first.
func (p *Profile) Replay(comparisons []ComparisonRecord, matchings []PitchMatchingRecord) {
	for _, r := range comparisons {
		p.Update(r.ReferenceNote, r.Magnitude(), r.Correct)
	}
	for _, r := range matchings {
		p.UpdateMatching(r.ReferenceNote, r.UserError)
	}
	p.log.Info("profile replayed",
		zap.Int("comparisons", len(comparisons)),
		zap.Int("pitch_matchings", len(matchings)))
}

// Update records one threshold sample for note. Both correct and incorrect
// answers count. Invalid notes are logged and ignored.
func (p *Profile) Update(note MIDINote, magnitude float64, correct bool) {
	if !note.Valid() {
		p.log.Error("update ignored: invalid MIDI note", zap.Int("note", int(note)))
		return
	}
	p.mu.Lock()
	s := &p.notes[note]
	s.add(magnitude)
	mean, stdDev, n := s.Mean, s.StdDev, s.SampleCount
	p.mu.Unlock()

	p.log.Debug("note updated",
		zap.Stringer("note", note),
		zap.Float64("sample", magnitude),
		zap.Bool("correct", correct),
		zap.Float64("mean", mean),
		zap.Float64("std_dev", stdDev),
		zap.Int("count", n))
}

// WeakSpots returns the n notes with the worst discrimination. Untrained
// notes rank first; trained notes rank by descending mean. Equal scores keep
// ascending note order.
func (p *Profile) WeakSpots(n int) []MIDINote {
	n = min(max(n, 0), NoteCount)

	type scored struct {
		note  MIDINote
		score float64
	}
	all := make([]scored, NoteCount)
	p.mu.RLock()
	for i, s := range p.notes {
		score := math.Inf(1)
		if s.IsTrained() {
			score = s.Mean
		}
		all[i] = scored{note: MIDINote(i), score: score}
	}
	p.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})

	out := make([]MIDINote, n)
	for i := range out {
		out[i] = all[i].note
	}
	return out
}

// StatsForNote returns a snapshot of the note's accumulator. Invalid notes
// return the cold value.
func (p *Profile) StatsForNote(note MIDINote) NoteStats {
	if !note.Valid() {
		p.log.Error("stats requested for invalid MIDI note", zap.Int("note", int(note)))
		return coldNoteStats()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.notes[note]
}

// trainedMeans returns the per-note means of trained notes in [lo, hi].
func (p *Profile) trainedMeans(lo, hi MIDINote) []float64 {
	lo, hi = max(lo, MinNote), min(hi, MaxNote)
	p.mu.RLock()
	defer p.mu.RUnlock()
	var means []float64
	for n := lo; n <= hi; n++ {
		if p.notes[n].IsTrained() {
			means = append(means, p.notes[n].Mean)
		}
	}
	return means
}

// OverallMean is the arithmetic mean of per-note means over trained notes.
// ok is false when no note is trained.
func (p *Profile) OverallMean() (mean float64, ok bool) {
	means := p.trainedMeans(MinNote, MaxNote)
	if len(means) == 0 {
		return 0, false
	}
	mean, _ = sampleMeanStdDev(means)
	return mean, true
}

// OverallStdDev is the n-1 standard deviation of per-note means. ok is false
// with fewer than two trained notes.
func (p *Profile) OverallStdDev() (stdDev float64, ok bool) {
	means := p.trainedMeans(MinNote, MaxNote)
	if len(means) < 2 {
		return 0, false
	}
	_, stdDev = sampleMeanStdDev(means)
	return stdDev, true
}

// AverageThreshold is the mean of per-note means of trained notes within the
// inclusive range [lo, hi]. ok is false when none is trained.
func (p *Profile) AverageThreshold(lo, hi MIDINote) (mean float64, ok bool) {
	means := p.trainedMeans(lo, hi)
	if len(means) == 0 {
		return 0, false
	}
	mean, _ = sampleMeanStdDev(means)
	return mean, true
}

// SetDifficulty stores the strategy's current cent difference for note.
func (p *Profile) SetDifficulty(note MIDINote, cents float64) {
	if !note.Valid() {
		p.log.Error("difficulty ignored: invalid MIDI note", zap.Int("note", int(note)))
		return
	}
	p.mu.Lock()
	p.notes[note].CurrentDifficulty = cents
	p.mu.Unlock()
}

// Reset returns the discrimination table to cold start.
func (p *Profile) Reset() {
	p.mu.Lock()
	p.resetNotes()
	p.mu.Unlock()
	p.log.Info("discrimination profile reset")
}

// UpdateMatching records the absolute value of a pitch-matching error.
func (p *Profile) UpdateMatching(note MIDINote, err Cents) {
	p.mu.Lock()
	p.matching.add(err.Magnitude())
	n := p.matching.n
	p.mu.Unlock()
	p.log.Debug("matching updated", zap.Stringer("note", note), zap.Float64("error", float64(err)), zap.Int("count", n))
}

// MatchingMean is the mean absolute matching error. ok is false with no samples.
func (p *Profile) MatchingMean() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.matching.n == 0 {
		return 0, false
	}
	return p.matching.mean, true
}

// MatchingStdDev is the n-1 standard deviation of absolute matching errors.
// ok is false below two samples.
func (p *Profile) MatchingStdDev() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.matching.n < 2 {
		return 0, false
	}
	return p.matching.stdDev(), true
}

// MatchingSampleCount returns the number of matching samples.
func (p *Profile) MatchingSampleCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.matching.n
}

// ResetMatching clears the matching accumulator only.
func (p *Profile) ResetMatching() {
	p.mu.Lock()
	p.matching = runningStats{}
	p.mu.Unlock()
	p.log.Info("matching profile reset")
}

// ComparisonCompleted implements ComparisonObserver.
func (p *Profile) ComparisonCompleted(c CompletedComparison) error {
	p.Update(c.Comparison.Reference, c.Comparison.CentDifference(), c.IsCorrect())
	return nil
}

// PitchMatchingCompleted implements PitchMatchingObserver.
func (p *Profile) PitchMatchingCompleted(r CompletedPitchMatching) error {
	p.UpdateMatching(r.ReferenceNote, r.UserError)
	return nil
}
