package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

const (
	defaultBendRange = 2.0 // semitones, the General MIDI default
	maxBend          = 8191
	minBend          = -8192
	allNotesOff      = 123 // channel mode controller
)

// Sender writes one MIDI message. midi.SendTo returns one for an output port.
type Sender func(midi.Message) error

// MIDIConfig configures a MIDIPlayer. Send is required.
type MIDIConfig struct {
	Send           Sender
	Channel        uint8         // 0-15
	BendRange      float64       // semitones the synth's pitch wheel spans each way; 0 → 2
	ReferencePitch ear.Frequency // A4; 0 → 440 Hz
	Logger         *zap.Logger
}

// MIDIPlayer plays tones on one MIDI channel. Each frequency is split into
// the nearest key and a pitch-bend offset, so the player is monophonic:
// a new tone retunes the channel.
type MIDIPlayer struct {
	send      Sender
	ch        uint8
	bendRange float64
	ref       ear.Frequency
	log       *zap.Logger

	mu      sync.Mutex // serializes sends
	release chan struct{}
}

var _ ear.NotePlayer = (*MIDIPlayer)(nil)

// NewMIDIPlayer validates cfg and returns a player.
func NewMIDIPlayer(cfg MIDIConfig) (*MIDIPlayer, error) {
	if cfg.Send == nil {
		return nil, errors.Wrap(ear.ErrMissingDependency, "midi sender")
	}
	if cfg.Channel > 15 {
		return nil, errors.Wrapf(ear.ErrInvalidSettings, "midi channel %d", cfg.Channel)
	}
	if cfg.BendRange < 0 {
		return nil, errors.Wrapf(ear.ErrInvalidSettings, "bend range %f", cfg.BendRange)
	}
	if cfg.BendRange == 0 {
		cfg.BendRange = defaultBendRange
	}
	if cfg.ReferencePitch == 0 {
		cfg.ReferencePitch = ear.DefaultReferencePitch
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &MIDIPlayer{
		send:      cfg.Send,
		ch:        cfg.Channel,
		bendRange: cfg.BendRange,
		ref:       cfg.ReferencePitch,
		log:       cfg.Logger.Named("midi_player"),
		release:   make(chan struct{}),
	}, nil
}

// bendFor returns the 14-bit signed pitch-bend value for an offset of
// cents, given a wheel spanning ±rangeSemis semitones:
//
//	bend = cents / (100 · rangeSemis) · 8192
func bendFor(cents ear.Cents, rangeSemis float64) (int16, bool) {
	v := math.Round(float64(cents) / (100 * rangeSemis) * 8192)
	if v > maxBend || v < minBend {
		return 0, false
	}
	return int16(v), true
}

// velocityFor scales v by a dB offset. MIDI velocity maps roughly to
// amplitude squared, so
//
//	vel = v · 10^(a/40)
func velocityFor(v ear.Velocity, a ear.AmplitudeDB) uint8 {
	vel := math.Round(float64(v) * math.Pow(10, float64(a.Clamp())/40))
	return uint8(math.Max(1, math.Min(127, vel)))
}

func (p *MIDIPlayer) sendLocked(msgs ...midi.Message) error {
	for _, m := range msgs {
		if err := p.send(m); err != nil {
			return errors.Wrapf(ear.ErrPlayback, "midi send %v: %v", m, err)
		}
	}
	return nil
}

// noteOn retunes the channel and starts the nearest key to f.
func (p *MIDIPlayer) noteOn(f ear.Frequency, v ear.Velocity, a ear.AmplitudeDB) (uint8, <-chan struct{}, error) {
	if f <= 0 {
		return 0, nil, errors.Wrapf(ear.ErrInvalidNote, "%.2f Hz", float64(f))
	}
	key, cents := ear.NoteAndCents(f, p.ref)
	if !key.Valid() {
		return 0, nil, errors.Wrapf(ear.ErrInvalidNote, "%.2f Hz", float64(f))
	}
	bend, ok := bendFor(cents, p.bendRange)
	if !ok {
		return 0, nil, errors.Wrapf(ear.ErrPlayback, "%.2f cents beyond bend range", float64(cents))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.sendLocked(
		midi.Pitchbend(p.ch, bend),
		midi.NoteOn(p.ch, uint8(key), velocityFor(v, a)),
	)
	if err != nil {
		return 0, nil, err
	}
	p.log.Debug("note on", zap.Stringer("key", key), zap.Int16("bend", bend))
	return uint8(key), p.release, nil
}

func (p *MIDIPlayer) noteOff(key uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendLocked(midi.NoteOff(p.ch, key))
}

// Play implements ear.NotePlayer. The note is released when d elapses,
// StopAll is called, or ctx is done.
func (p *MIDIPlayer) Play(ctx context.Context, f ear.Frequency, d time.Duration, v ear.Velocity, a ear.AmplitudeDB) error {
	key, release, err := p.noteOn(f, v, a)
	if err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if err := p.noteOff(key); err != nil {
			p.log.Warn("note off after cancel", zap.Error(err))
		}
		return ctx.Err()
	case <-release:
		return nil
	case <-timer.C:
	}
	return p.noteOff(key)
}

// PlayHandle implements ear.NotePlayer.
func (p *MIDIPlayer) PlayHandle(ctx context.Context, f ear.Frequency, v ear.Velocity, a ear.AmplitudeDB) (ear.PlaybackHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, _, err := p.noteOn(f, v, a)
	if err != nil {
		return nil, err
	}
	return &midiHandle{player: p, key: key}, nil
}

// StopAll implements ear.NotePlayer: all notes off and the wheel centred.
func (p *MIDIPlayer) StopAll(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.release)
	p.release = make(chan struct{})
	return p.sendLocked(
		midi.ControlChange(p.ch, allNotesOff, 0),
		midi.Pitchbend(p.ch, 0),
	)
}

type midiHandle struct {
	player *MIDIPlayer
	key    uint8
	once   sync.Once
}

// AdjustFrequency retunes the held key with pitch bend. Frequencies
// further from the key than the bend range fail.
func (h *midiHandle) AdjustFrequency(_ context.Context, f ear.Frequency) error {
	base, err := ear.FrequencyOf(ear.DetunedNote{Note: ear.MIDINote(h.key)}, h.player.ref)
	if err != nil {
		return err
	}
	cents := ear.CentsBetween(f, base)
	bend, ok := bendFor(cents, h.player.bendRange)
	if !ok {
		return errors.Wrapf(ear.ErrPlayback, "%.2f cents beyond bend range", float64(cents))
	}
	h.player.mu.Lock()
	defer h.player.mu.Unlock()
	return h.player.sendLocked(midi.Pitchbend(h.player.ch, bend))
}

func (h *midiHandle) Stop(context.Context) error {
	var err error
	h.once.Do(func() { err = h.player.noteOff(h.key) })
	return err
}
