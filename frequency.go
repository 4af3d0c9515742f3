package ear

import (
	"math"

	"github.com/pkg/errors"
)

// Reference pitch bounds for A4. 380..500 Hz covers A415 baroque through A442.
const (
	MinReferencePitch     Frequency = 380
	MaxReferencePitch     Frequency = 500
	DefaultReferencePitch Frequency = 440

	referenceNote     = 69
	centsPerSemitone  = 100.0
	semitonesInOctave = 12.0
	centsPerOctave    = 1200.0
)

// FrequencyOf converts a detuned note to Hz under equal temperament.
// f = ref * 2^((note - 69 + cents/100) / 12)
func FrequencyOf(n DetunedNote, referencePitch Frequency) (Frequency, error) {
	if !n.Note.Valid() {
		return 0, errors.Wrapf(ErrInvalidNote, "note %d", int(n.Note))
	}
	if referencePitch < MinReferencePitch || referencePitch > MaxReferencePitch {
		return 0, errors.Wrapf(ErrInvalidReferencePitch, "%.2f Hz not in [%.0f, %.0f]",
			float64(referencePitch), float64(MinReferencePitch), float64(MaxReferencePitch))
	}
	semitones := float64(int(n.Note)-referenceNote) + float64(n.Offset)/centsPerSemitone
	return Frequency(float64(referencePitch) * math.Pow(2, semitones/semitonesInOctave)), nil
}

// NoteAndCents returns the nearest MIDI note to f and the remainder in cents (-50..+50).
// exact = 69 + 12 * log2(f / ref)
func NoteAndCents(f, referencePitch Frequency) (MIDINote, Cents) {
	exact := referenceNote + semitonesInOctave*math.Log2(float64(f)/float64(referencePitch))
	nearest := math.Round(exact)
	return MIDINote(nearest), Cents((exact - nearest) * centsPerSemitone)
}

// CentsBetween returns the signed distance from reference to f.
// c = 1200 * log2(f / reference)
func CentsBetween(f, reference Frequency) Cents {
	return Cents(centsPerOctave * math.Log2(float64(f)/float64(reference)))
}

// Detuned returns f shifted by c cents.
// f' = f * 2^(c / 1200)
func (f Frequency) Detuned(c Cents) Frequency {
	return Frequency(float64(f) * math.Pow(2, float64(c)/centsPerOctave))
}
