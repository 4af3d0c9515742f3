package ear

import "time"

// Comparison is one forced-choice trial: a reference note followed by the
// same note detuned by a signed cent offset.
type Comparison struct {
	Reference MIDINote    `json:"reference"`
	Target    DetunedNote `json:"target"`
}

// TargetIsHigher reports whether the second tone is sharper than the first.
func (c Comparison) TargetIsHigher() bool {
	return c.Target.Offset > 0
}

// CentDifference returns the unsigned offset between the two tones.
func (c Comparison) CentDifference() float64 {
	return c.Target.Offset.Magnitude()
}

// IsCorrect reports whether answering "higher" (or not) matches the target.
func (c Comparison) IsCorrect(answeredHigher bool) bool {
	return answeredHigher == c.TargetIsHigher()
}

// CompletedComparison is an answered Comparison.
type CompletedComparison struct {
	Comparison     Comparison `json:"comparison"`
	AnsweredHigher bool       `json:"answered_higher"`
	Timestamp      time.Time  `json:"timestamp"`
}

// IsCorrect reports whether the answer was right.
func (c CompletedComparison) IsCorrect() bool {
	return c.Comparison.IsCorrect(c.AnsweredHigher)
}

// PitchMatchingChallenge asks the user to tune a tone that starts
// InitialOffset away from ReferenceNote back onto it.
type PitchMatchingChallenge struct {
	ReferenceNote MIDINote `json:"reference_note"`
	InitialOffset Cents    `json:"initial_offset"`
}

// CompletedPitchMatching is a committed pitch-matching attempt.
type CompletedPitchMatching struct {
	ReferenceNote MIDINote  `json:"reference_note"`
	InitialOffset Cents     `json:"initial_offset"`
	UserError     Cents     `json:"user_error"` // signed; positive is sharp.
	Timestamp     time.Time `json:"timestamp"`
}
