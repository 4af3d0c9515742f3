package ear

import (
	"time"

	"github.com/pkg/errors"
)

// Note range rules. A0..C8 is the span of a piano keyboard.
const (
	AbsoluteMinNote MIDINote = 21
	AbsoluteMaxNote MIDINote = 108
	MinimumNoteGap           = 12
)

// Note duration bounds.
const (
	MinNoteDuration = 300 * time.Millisecond
	MaxNoteDuration = 3 * time.Second
)

// Settings is the training configuration read at the start of every trial.
type Settings struct {
	NoteRangeMin        MIDINote      `yaml:"note_range_min" json:"note_range_min"`
	NoteRangeMax        MIDINote      `yaml:"note_range_max" json:"note_range_max"`
	NoteDuration        time.Duration `yaml:"note_duration" json:"note_duration"`
	ReferencePitch      Frequency     `yaml:"reference_pitch" json:"reference_pitch"`
	SoundSource         string        `yaml:"sound_source" json:"sound_source"`
	VaryLoudness        float64       `yaml:"vary_loudness" json:"vary_loudness"`                 // 0..1
	NaturalVsMechanical float64       `yaml:"natural_vs_mechanical" json:"natural_vs_mechanical"` // 0 nearby notes, 1 weak spots
	MinCentDifference   float64       `yaml:"min_cent_difference" json:"min_cent_difference"`
	MaxCentDifference   float64       `yaml:"max_cent_difference" json:"max_cent_difference"`
}

// DefaultSettings returns C2..C6 at A440 with one-second tones.
func DefaultSettings() Settings {
	return Settings{
		NoteRangeMin:        36,
		NoteRangeMax:        84,
		NoteDuration:        time.Second,
		ReferencePitch:      DefaultReferencePitch,
		SoundSource:         "sine",
		VaryLoudness:        0,
		NaturalVsMechanical: 0.5,
		MinCentDifference:   0.1,
		MaxCentDifference:   100,
	}
}

// IsInRange reports whether note lies in [NoteRangeMin, NoteRangeMax].
func (s Settings) IsInRange(note MIDINote) bool {
	return note >= s.NoteRangeMin && note <= s.NoteRangeMax
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	switch {
	case s.NoteRangeMin < AbsoluteMinNote || s.NoteRangeMax > AbsoluteMaxNote:
		return errors.Wrapf(ErrInvalidSettings, "note range %v..%v outside %v..%v",
			s.NoteRangeMin, s.NoteRangeMax, AbsoluteMinNote, AbsoluteMaxNote)
	case int(s.NoteRangeMax-s.NoteRangeMin) < MinimumNoteGap:
		return errors.Wrapf(ErrInvalidSettings, "note range %v..%v narrower than %d semitones",
			s.NoteRangeMin, s.NoteRangeMax, MinimumNoteGap)
	case s.NoteDuration < MinNoteDuration || s.NoteDuration > MaxNoteDuration:
		return errors.Wrapf(ErrInvalidSettings, "note duration %v outside %v..%v",
			s.NoteDuration, MinNoteDuration, MaxNoteDuration)
	case s.ReferencePitch < MinReferencePitch || s.ReferencePitch > MaxReferencePitch:
		return errors.Wrapf(ErrInvalidSettings, "reference pitch %.2f Hz", float64(s.ReferencePitch))
	case s.VaryLoudness < 0 || s.VaryLoudness > 1:
		return errors.Wrapf(ErrInvalidSettings, "vary loudness %f outside [0, 1]", s.VaryLoudness)
	case s.NaturalVsMechanical < 0 || s.NaturalVsMechanical > 1:
		return errors.Wrapf(ErrInvalidSettings, "natural vs mechanical %f outside [0, 1]", s.NaturalVsMechanical)
	case s.MinCentDifference <= 0 || s.MinCentDifference > s.MaxCentDifference:
		return errors.Wrapf(ErrInvalidSettings, "cent difference bounds %f..%f",
			s.MinCentDifference, s.MaxCentDifference)
	}
	return nil
}

// SettingsProvider supplies a settings snapshot. Sessions call it once per
// trial, so a provider backed by a watched file gives live settings.
type SettingsProvider interface {
	Settings() Settings
}

// StaticSettings is a SettingsProvider that always returns the same value.
type StaticSettings Settings

// Settings implements SettingsProvider.
func (s StaticSettings) Settings() Settings {
	return Settings(s)
}
