package ear

import "time"

// ComparisonRecord is the persisted form of a CompletedComparison.
type ComparisonRecord struct {
	ID            string    `json:"id"`
	ReferenceNote MIDINote  `json:"reference_note"`
	TargetNote    MIDINote  `json:"target_note"`
	TargetOffset  Cents     `json:"target_offset"` // signed; positive = target higher.
	Correct       bool      `json:"correct"`
	Timestamp     time.Time `json:"timestamp"`
}

// PitchMatchingRecord is the persisted form of a CompletedPitchMatching.
type PitchMatchingRecord struct {
	ID            string    `json:"id"`
	ReferenceNote MIDINote  `json:"reference_note"`
	InitialOffset Cents     `json:"initial_offset"`
	UserError     Cents     `json:"user_error"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewComparisonRecord converts a completed comparison. ID is left empty for
// the store to assign.
func NewComparisonRecord(c CompletedComparison) ComparisonRecord {
	return ComparisonRecord{
		ReferenceNote: c.Comparison.Reference,
		TargetNote:    c.Comparison.Target.Note,
		TargetOffset:  c.Comparison.Target.Offset,
		Correct:       c.IsCorrect(),
		Timestamp:     c.Timestamp,
	}
}

// NewPitchMatchingRecord converts a completed pitch matching.
func NewPitchMatchingRecord(r CompletedPitchMatching) PitchMatchingRecord {
	return PitchMatchingRecord{
		ReferenceNote: r.ReferenceNote,
		InitialOffset: r.InitialOffset,
		UserError:     r.UserError,
		Timestamp:     r.Timestamp,
	}
}

// Magnitude returns the unsigned threshold sample this record contributes.
func (r ComparisonRecord) Magnitude() float64 {
	return r.TargetOffset.Magnitude()
}
