// Package audio provides ear.NotePlayer implementations.
//
// [ClockPlayer] makes no sound: it waits out each tone's duration and
// records what would have played, which is enough to drive a session from
// a terminal or a test. [MIDIPlayer] renders tones on a MIDI output as
// note-on/note-off pairs with pitch bend for the cent offset.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"go.uber.org/zap"
)

// Tone is one played tone. Held tones come from PlayHandle and have no
// duration.
type Tone struct {
	Frequency ear.Frequency
	Duration  time.Duration
	Velocity  ear.Velocity
	Amplitude ear.AmplitudeDB
	Held      bool
}

// ClockConfig configures a ClockPlayer.
type ClockConfig struct {
	Logger *zap.Logger // nil → no logging
	OnTone func(Tone)  // called as each tone starts; may be nil
}

// ClockPlayer is a silent NotePlayer that keeps time.
type ClockPlayer struct {
	log    *zap.Logger
	onTone func(Tone)

	mu        sync.Mutex
	tones     []Tone
	handles   []*ClockHandle
	release   chan struct{}
	calls     int
	failAfter int // 0 disables failure injection
}

var _ ear.NotePlayer = (*ClockPlayer)(nil)

// NewClockPlayer returns a ClockPlayer.
func NewClockPlayer(cfg ClockConfig) *ClockPlayer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ClockPlayer{
		log:     cfg.Logger.Named("clock_player"),
		onTone:  cfg.OnTone,
		release: make(chan struct{}),
	}
}

// FailAfter makes every Play and PlayHandle call after the first n fail
// with ear.ErrPlayback. n <= 0 disables failures.
func (p *ClockPlayer) FailAfter(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAfter = n
	p.calls = 0
}

// start records t and returns the channel StopAll closes, or an injected
// failure.
func (p *ClockPlayer) start(t Tone) (<-chan struct{}, error) {
	p.mu.Lock()
	p.calls++
	if p.failAfter > 0 && p.calls > p.failAfter {
		p.mu.Unlock()
		return nil, errors.Wrapf(ear.ErrPlayback, "clock player: injected failure on call %d", p.calls)
	}
	p.tones = append(p.tones, t)
	release := p.release
	p.mu.Unlock()

	if p.onTone != nil {
		p.onTone(t)
	}
	p.log.Debug("tone",
		zap.Float64("hz", float64(t.Frequency)),
		zap.Duration("duration", t.Duration),
		zap.Bool("held", t.Held))
	return release, nil
}

// Play implements ear.NotePlayer. It returns when d has elapsed, StopAll
// is called, or ctx is done.
func (p *ClockPlayer) Play(ctx context.Context, f ear.Frequency, d time.Duration, v ear.Velocity, a ear.AmplitudeDB) error {
	release, err := p.start(Tone{Frequency: f, Duration: d, Velocity: v, Amplitude: a.Clamp()})
	if err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-release:
		return nil
	case <-timer.C:
		return nil
	}
}

// PlayHandle implements ear.NotePlayer.
func (p *ClockPlayer) PlayHandle(ctx context.Context, f ear.Frequency, v ear.Velocity, a ear.AmplitudeDB) (ear.PlaybackHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := p.start(Tone{Frequency: f, Velocity: v, Amplitude: a.Clamp(), Held: true}); err != nil {
		return nil, err
	}
	h := &ClockHandle{frequencies: []ear.Frequency{f}}
	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()
	return h, nil
}

// StopAll implements ear.NotePlayer. Every Play in progress returns and
// every open handle is stopped.
func (p *ClockPlayer) StopAll(context.Context) error {
	p.mu.Lock()
	close(p.release)
	p.release = make(chan struct{})
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()

	for _, h := range handles {
		h.Stop(context.Background())
	}
	return nil
}

// Tones returns every tone played so far.
func (p *ClockPlayer) Tones() []Tone {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Tone(nil), p.tones...)
}

// ClockHandle is the PlaybackHandle returned by ClockPlayer.
type ClockHandle struct {
	mu          sync.Mutex
	frequencies []ear.Frequency
	stopped     bool
}

// AdjustFrequency implements ear.PlaybackHandle.
func (h *ClockHandle) AdjustFrequency(_ context.Context, f ear.Frequency) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return errors.Wrap(ear.ErrPlayback, "clock player: handle stopped")
	}
	h.frequencies = append(h.frequencies, f)
	return nil
}

// Stop implements ear.PlaybackHandle. It is idempotent.
func (h *ClockHandle) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	return nil
}

// Frequencies returns the start frequency followed by every adjustment.
func (h *ClockHandle) Frequencies() []ear.Frequency {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ear.Frequency(nil), h.frequencies...)
}

// Stopped reports whether Stop has been called.
func (h *ClockHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
