package audio

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap/zaptest"
)

func TestClockPlayerWaitsDuration(t *testing.T) {
	p := NewClockPlayer(ClockConfig{Logger: zaptest.NewLogger(t)})
	start := time.Now()
	require.NoError(t, p.Play(context.Background(), 440, 20*time.Millisecond, ear.DefaultVelocity, 3))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	tones := p.Tones()
	require.Len(t, tones, 1)
	assert.Equal(t, Tone{Frequency: 440, Duration: 20 * time.Millisecond, Velocity: ear.DefaultVelocity, Amplitude: 3}, tones[0])
}

func TestClockPlayerCancel(t *testing.T) {
	p := NewClockPlayer(ClockConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Play(ctx, 440, time.Hour, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = p.PlayHandle(ctx, 440, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClockPlayerStopAllReleases(t *testing.T) {
	p := NewClockPlayer(ClockConfig{})
	done := make(chan error, 1)
	go func() { done <- p.Play(context.Background(), 440, time.Hour, ear.DefaultVelocity, 0) }()
	require.Eventually(t, func() bool { return len(p.Tones()) == 1 }, time.Second, time.Millisecond)

	h, err := p.PlayHandle(context.Background(), 330, ear.DefaultVelocity, 0)
	require.NoError(t, err)
	require.NoError(t, p.StopAll(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Play not released by StopAll")
	}
	assert.True(t, h.(*ClockHandle).Stopped())
}

func TestClockPlayerFailAfter(t *testing.T) {
	var seen []Tone
	p := NewClockPlayer(ClockConfig{OnTone: func(t Tone) { seen = append(seen, t) }})
	p.FailAfter(1)
	require.NoError(t, p.Play(context.Background(), 440, 0, ear.DefaultVelocity, 0))
	err := p.Play(context.Background(), 440, 0, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, ear.ErrPlayback))
	_, err = p.PlayHandle(context.Background(), 440, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, ear.ErrPlayback))
	assert.Len(t, seen, 1)

	p.FailAfter(0)
	assert.NoError(t, p.Play(context.Background(), 440, 0, ear.DefaultVelocity, 0))
}

func TestClockHandle(t *testing.T) {
	p := NewClockPlayer(ClockConfig{})
	h, err := p.PlayHandle(context.Background(), 440, ear.DefaultVelocity, 0)
	require.NoError(t, err)
	ch := h.(*ClockHandle)

	require.NoError(t, h.AdjustFrequency(context.Background(), 445))
	assert.Equal(t, []ear.Frequency{440, 445}, ch.Frequencies())
	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, h.Stop(context.Background()))
	assert.True(t, errors.Is(h.AdjustFrequency(context.Background(), 450), ear.ErrPlayback))
	assert.True(t, p.Tones()[0].Held)
}

// TestClockPlayerDrivesSession runs a full comparison loop with real timers.
func TestClockPlayerDrivesSession(t *testing.T) {
	p := NewClockPlayer(ClockConfig{})
	settings := ear.DefaultSettings()
	settings.NoteDuration = 5 * time.Millisecond
	profile := ear.NewProfile(nil)
	s, err := ear.NewComparisonSession(ear.ComparisonSessionConfig{
		Player:        p,
		Profile:       profile,
		Settings:      ear.StaticSettings(settings),
		Observers:     []ear.ComparisonObserver{profile},
		FeedbackDelay: time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Stop()

	s.Start()
	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool { return s.State() == ear.AwaitingAnswer }, time.Second, time.Millisecond)
		c, ok := s.CurrentComparison()
		require.True(t, ok)
		s.HandleAnswer(c.TargetIsHigher())
	}
	require.Eventually(t, func() bool { return len(p.Tones()) >= 7 }, time.Second, time.Millisecond)
	assert.Equal(t, 3, totalSamples(profile))
}

func totalSamples(p *ear.Profile) int {
	n := 0
	for note := ear.MinNote; note <= ear.MaxNote; note++ {
		n += p.StatsForNote(note).SampleCount
	}
	return n
}

type midiRecorder struct {
	mu   sync.Mutex
	msgs []midi.Message
	err  error
}

func (r *midiRecorder) send(m midi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *midiRecorder) messages() []midi.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]midi.Message(nil), r.msgs...)
}

func newMIDI(t *testing.T, r *midiRecorder) *MIDIPlayer {
	t.Helper()
	p, err := NewMIDIPlayer(MIDIConfig{Send: r.send, Channel: 2, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return p
}

func TestNewMIDIPlayerValidation(t *testing.T) {
	_, err := NewMIDIPlayer(MIDIConfig{})
	assert.True(t, errors.Is(err, ear.ErrMissingDependency))
	_, err = NewMIDIPlayer(MIDIConfig{Send: func(midi.Message) error { return nil }, Channel: 16})
	assert.True(t, errors.Is(err, ear.ErrInvalidSettings))
	_, err = NewMIDIPlayer(MIDIConfig{Send: func(midi.Message) error { return nil }, BendRange: -1})
	assert.True(t, errors.Is(err, ear.ErrInvalidSettings))
}

func TestBendFor(t *testing.T) {
	tests := []struct {
		cents ear.Cents
		want  int16
		ok    bool
	}{
		{0, 0, true},
		{25, 1024, true},
		{-50, -2048, true},
		{-200, -8192, true},
		{150, 6144, true},
		{200, 0, false},
		{-201, 0, false},
	}
	for _, tt := range tests {
		got, ok := bendFor(tt.cents, 2)
		assert.Equal(t, tt.ok, ok, "cents %v", tt.cents)
		assert.Equal(t, tt.want, got, "cents %v", tt.cents)
	}
}

func TestVelocityFor(t *testing.T) {
	assert.Equal(t, uint8(63), velocityFor(63, 0))
	assert.Equal(t, uint8(126), velocityFor(63, 12)) // 63 · 10^0.3 ≈ 125.7
	assert.Equal(t, uint8(1), velocityFor(63, -90))
	assert.Equal(t, uint8(127), velocityFor(127, 12))
}

func TestMIDIPlayerPlay(t *testing.T) {
	r := &midiRecorder{}
	p := newMIDI(t, r)
	f := ear.Frequency(440 * math.Pow(2, 25.0/1200))
	require.NoError(t, p.Play(context.Background(), f, time.Millisecond, ear.DefaultVelocity, 0))

	msgs := r.messages()
	require.Len(t, msgs, 3)

	var ch, key, vel uint8
	var rel int16
	var abs uint16
	require.True(t, msgs[0].GetPitchBend(&ch, &rel, &abs))
	assert.Equal(t, uint8(2), ch)
	assert.Equal(t, int16(1024), rel)

	require.True(t, msgs[1].GetNoteStart(&ch, &key, &vel))
	assert.Equal(t, uint8(69), key)
	assert.Equal(t, uint8(63), vel)

	require.True(t, msgs[2].GetNoteEnd(&ch, &key))
	assert.Equal(t, uint8(69), key)
}

func TestMIDIPlayerRejectsOutOfRange(t *testing.T) {
	r := &midiRecorder{}
	p := newMIDI(t, r)
	err := p.Play(context.Background(), 20000, time.Millisecond, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, ear.ErrInvalidNote))
	err = p.Play(context.Background(), 0, time.Millisecond, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, ear.ErrInvalidNote))
	assert.Empty(t, r.messages())
}

func TestMIDIPlayerSendFailure(t *testing.T) {
	r := &midiRecorder{err: errors.New("port closed")}
	p := newMIDI(t, r)
	err := p.Play(context.Background(), 440, time.Millisecond, ear.DefaultVelocity, 0)
	assert.True(t, errors.Is(err, ear.ErrPlayback))
}

func TestMIDIPlayerStopAll(t *testing.T) {
	r := &midiRecorder{}
	p := newMIDI(t, r)
	done := make(chan error, 1)
	go func() { done <- p.Play(context.Background(), 440, time.Hour, ear.DefaultVelocity, 0) }()
	require.Eventually(t, func() bool { return len(r.messages()) == 2 }, time.Second, time.Millisecond)

	require.NoError(t, p.StopAll(context.Background()))
	require.NoError(t, <-done)

	msgs := r.messages()
	require.Len(t, msgs, 4)
	var ch, controller, value uint8
	require.True(t, msgs[2].GetControlChange(&ch, &controller, &value))
	assert.Equal(t, uint8(allNotesOff), controller)
}

func TestMIDIHandleRetunes(t *testing.T) {
	r := &midiRecorder{}
	p := newMIDI(t, r)
	h, err := p.PlayHandle(context.Background(), 440, ear.DefaultVelocity, 0)
	require.NoError(t, err)

	sharp := ear.Frequency(440 * math.Pow(2, 50.0/1200))
	require.NoError(t, h.AdjustFrequency(context.Background(), sharp))
	far := ear.Frequency(440 * math.Pow(2, 300.0/1200))
	assert.True(t, errors.Is(h.AdjustFrequency(context.Background(), far), ear.ErrPlayback))

	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, h.Stop(context.Background()))

	msgs := r.messages()
	require.Len(t, msgs, 4) // bend, note on, bend, note off
	var ch uint8
	var rel int16
	var abs uint16
	require.True(t, msgs[2].GetPitchBend(&ch, &rel, &abs))
	assert.Equal(t, int16(2048), rel)
	var key uint8
	assert.True(t, msgs[3].GetNoteEnd(&ch, &key))
}
