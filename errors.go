package ear

import "github.com/pkg/errors"

// Sentinel errors for the ear package.
// Use errors.Is to check: errors.Is(err, ear.ErrPlayback)
var (
	ErrPlayback              = errors.New("ear: playback failed")
	ErrInvalidNote           = errors.New("ear: MIDI note out of range")
	ErrInvalidReferencePitch = errors.New("ear: reference pitch out of range")
	ErrInvalidSettings       = errors.New("ear: invalid settings")
	ErrObserver              = errors.New("ear: observer failed")
	ErrMissingDependency     = errors.New("ear: missing required dependency")
)
