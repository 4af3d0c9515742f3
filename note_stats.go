package ear

// DefaultDifficulty is the cent difference a note starts at before any
// strategy has refined it.
const DefaultDifficulty = 100.0

// NoteStats is the discrimination accumulator for one MIDI note.
type NoteStats struct {
	Mean              float64 `json:"mean"`    // cents
	StdDev            float64 `json:"std_dev"` // 0 below two samples.
	M2                float64 `json:"m2"`      // Welford sum of squared deviations.
	SampleCount       int     `json:"sample_count"`
	CurrentDifficulty float64 `json:"current_difficulty"` // set by the selection strategy.
}

// coldNoteStats returns the untrained value of a note.
func coldNoteStats() NoteStats {
	return NoteStats{CurrentDifficulty: DefaultDifficulty}
}

// IsTrained reports whether the note has at least one sample.
func (s NoteStats) IsTrained() bool {
	return s.SampleCount > 0
}

// add folds one sample into the note and refreshes StdDev.
func (s *NoteStats) add(x float64) {
	r := runningStats{n: s.SampleCount, mean: s.Mean, m2: s.M2}
	r.add(x)
	s.SampleCount, s.Mean, s.M2 = r.n, r.mean, r.m2
	s.StdDev = r.stdDev()
}
