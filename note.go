package ear

import (
	"fmt"
	"math"
)

// MIDINote is a MIDI note number. Valid values are 0 through 127; 69 is A4.
type MIDINote int

const (
	MinNote   MIDINote = 0
	MaxNote   MIDINote = 127
	NoteCount          = 128
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Valid reports whether n is within 0..127.
func (n MIDINote) Valid() bool {
	return n >= MinNote && n <= MaxNote
}

// String returns the scientific pitch name ("C4", "A#3").
// For invalid values it returns "MIDINote(n)".
func (n MIDINote) String() string {
	if !n.Valid() {
		return fmt.Sprintf("MIDINote(%d)", int(n))
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n)/12-1)
}

// Cents is a signed pitch offset; 100 cents is one equal-tempered semitone.
type Cents float64

// Magnitude returns the absolute size of the offset.
func (c Cents) Magnitude() float64 {
	return math.Abs(float64(c))
}

// Frequency is a pitch in Hz.
type Frequency float64

// DetunedNote is a note shifted by a signed cent offset.
type DetunedNote struct {
	Note   MIDINote `json:"note"`
	Offset Cents    `json:"offset"`
}

// Velocity is a MIDI note-on velocity (1..127).
type Velocity uint8

// DefaultVelocity is used for every training tone.
const DefaultVelocity Velocity = 63

// AmplitudeDB is a gain relative to the player's nominal level.
type AmplitudeDB float32

const (
	MinAmplitudeDB AmplitudeDB = -90
	MaxAmplitudeDB AmplitudeDB = 12
)

// Clamp limits a to [MinAmplitudeDB, MaxAmplitudeDB].
func (a AmplitudeDB) Clamp() AmplitudeDB {
	return min(max(a, MinAmplitudeDB), MaxAmplitudeDB)
}
