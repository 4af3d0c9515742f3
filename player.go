package ear

import (
	"context"
	"time"
)

// NotePlayer produces tones. It knows frequencies only; note names, cents
// and tuning are resolved before a call. Failures should wrap ErrPlayback.
type NotePlayer interface {
	// Play sounds f for d and returns when the tone ends, ctx is done, or
	// StopAll cuts it short.
	Play(ctx context.Context, f Frequency, d time.Duration, v Velocity, a AmplitudeDB) error

	// PlayHandle starts an indefinite tone owned by the returned handle.
	PlayHandle(ctx context.Context, f Frequency, v Velocity, a AmplitudeDB) (PlaybackHandle, error)

	// StopAll silences every tone.
	StopAll(ctx context.Context) error
}

// PlaybackHandle controls one indefinite tone.
type PlaybackHandle interface {
	// Stop ends the tone. Calls after the first are no-ops.
	Stop(ctx context.Context) error

	// AdjustFrequency retunes the sounding tone to f.
	AdjustFrequency(ctx context.Context, f Frequency) error
}
