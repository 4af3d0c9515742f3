package ear

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PitchMatchingSessionConfig configures a PitchMatchingSession.
// Player and Profile are required.
type PitchMatchingSessionConfig struct {
	Player      NotePlayer
	Profile     MatchingProfile
	Strategy    NextChallengeStrategy // nil → RandomChallengeStrategy
	Settings    SettingsProvider      // nil → DefaultSettings
	Observers   []PitchMatchingObserver
	Resettables []Resettable

	FeedbackDelay time.Duration    // zero → DefaultFeedbackDelay
	Logger        *zap.Logger      // nil → no logging
	Clock         func() time.Time // nil → time.Now
	Rand          *rand.Rand       // used by the default strategy
}

// PitchMatchingSession plays a reference tone and then an indefinite,
// detuned tone the user retunes until it matches.
//
//	Idle → PlayingReference → PlayingTunable → ShowingFeedback → PlayingReference …
type PitchMatchingSession struct {
	sessionCore

	profile     MatchingProfile
	strategy    NextChallengeStrategy
	observers   []PitchMatchingObserver
	resettables []Resettable

	// guarded by sessionCore.mu
	challenge *PitchMatchingChallenge
	reference Frequency
	handle    PlaybackHandle
	last      *CompletedPitchMatching
}

type pitchMatchingTrial struct {
	seq       uint64
	duration  time.Duration
	reference Frequency
	tunable   Frequency
}

// NewPitchMatchingSession creates an idle session.
func NewPitchMatchingSession(cfg PitchMatchingSessionConfig) (*PitchMatchingSession, error) {
	if cfg.Profile == nil {
		return nil, errors.Wrap(ErrMissingDependency, "matching profile")
	}
	if cfg.Strategy == nil {
		cfg.Strategy = NewRandomChallengeStrategy(StrategyConfig{Logger: cfg.Logger, Rand: cfg.Rand})
	}
	s := &PitchMatchingSession{
		profile:     cfg.Profile,
		strategy:    cfg.Strategy,
		observers:   append([]PitchMatchingObserver(nil), cfg.Observers...),
		resettables: append([]Resettable(nil), cfg.Resettables...),
	}
	err := s.init("pitch_matching", sessionOptions{
		player:        cfg.Player,
		settings:      cfg.Settings,
		feedbackDelay: cfg.FeedbackDelay,
		logger:        cfg.Logger,
		clock:         cfg.Clock,
		rand:          cfg.Rand,
	})
	if err != nil {
		return nil, err
	}
	s.onHalt = s.clearLocked
	return s, nil
}

// Start begins training. It is a no-op unless the session is Idle.
func (s *PitchMatchingSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		s.log.Warn("start ignored", zap.Stringer("state", s.state))
		return
	}
	s.log.Info("starting pitch matching")
	ctx := s.openLocked()
	run := s.beginTrialLocked(ctx)
	if run == nil {
		return
	}
	s.goLocked(func() {
		run()
		s.heartbeat(ctx)
	})
}

func (s *PitchMatchingSession) beginTrialLocked(ctx context.Context) func() {
	settings := s.settings.Settings()
	c := s.strategy.NextChallenge(s.profile, settings, s.last)

	ref, err := FrequencyOf(DetunedNote{Note: c.ReferenceNote}, settings.ReferencePitch)
	if err != nil {
		s.log.Error("reference frequency", zap.Error(err))
		s.haltLocked()
		return nil
	}
	tunable, err := FrequencyOf(DetunedNote{Note: c.ReferenceNote, Offset: c.InitialOffset}, settings.ReferencePitch)
	if err != nil {
		s.log.Error("tunable frequency", zap.Error(err))
		s.haltLocked()
		return nil
	}

	s.seq++
	s.challenge = &c
	s.reference = ref
	s.state = PlayingReference
	t := pitchMatchingTrial{
		seq:       s.seq,
		duration:  settings.NoteDuration,
		reference: ref,
		tunable:   tunable,
	}
	s.log.Info("challenge",
		zap.Stringer("note", c.ReferenceNote),
		zap.Float64("reference_hz", float64(ref)),
		zap.Float64("offset", float64(c.InitialOffset)))
	return func() { s.playTrial(ctx, t) }
}

func (s *PitchMatchingSession) playTrial(ctx context.Context, t pitchMatchingTrial) {
	if err := s.player.Play(ctx, t.reference, t.duration, DefaultVelocity, 0); err != nil {
		s.playbackFailed(ctx, t.seq, PlayingReference, err)
		return
	}

	s.mu.Lock()
	if !s.currentLocked(ctx, t.seq, PlayingReference) {
		s.mu.Unlock()
		return
	}
	s.state = PlayingTunable
	s.mu.Unlock()

	h, err := s.player.PlayHandle(ctx, t.tunable, DefaultVelocity, 0)
	if err != nil {
		s.playbackFailed(ctx, t.seq, PlayingTunable, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(ctx, t.seq, PlayingTunable) {
		// Stopped or committed while the tone was starting.
		s.stopHandleLocked(h)
		return
	}
	s.handle = h
	s.log.Debug("tunable tone playing", zap.Float64("hz", float64(t.tunable)))
}

// stopHandleLocked stops h without waiting.
func (s *PitchMatchingSession) stopHandleLocked(h PlaybackHandle) {
	s.goLocked(func() {
		if err := h.Stop(context.Background()); err != nil {
			s.log.Warn("stop tunable tone", zap.Error(err))
		}
	})
}

// AdjustPitch retunes the tunable tone. Ignored outside PlayingTunable or
// before the tone has started.
func (s *PitchMatchingSession) AdjustPitch(f Frequency) {
	s.mu.Lock()
	h, ctx := s.handle, s.loopCtx
	ok := s.state == PlayingTunable && h != nil
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := h.AdjustFrequency(ctx, f); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("adjust frequency", zap.Float64("hz", float64(f)), zap.Error(err))
	}
}

// CommitPitch ends the challenge with the user's final frequency f.
// The signed error is 1200·log2(f / reference).
func (s *PitchMatchingSession) CommitPitch(f Frequency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != PlayingTunable || s.challenge == nil {
		s.log.Warn("commit ignored", zap.Stringer("state", s.state))
		return
	}
	if s.handle != nil {
		s.stopHandleLocked(s.handle)
		s.handle = nil
	}

	result := CompletedPitchMatching{
		ReferenceNote: s.challenge.ReferenceNote,
		InitialOffset: s.challenge.InitialOffset,
		UserError:     CentsBetween(f, s.reference),
		Timestamp:     s.now(),
	}
	s.last = &result
	s.log.Info("pitch committed",
		zap.Float64("hz", float64(f)),
		zap.Float64("error", float64(result.UserError)))

	notifyPitchMatching(s.log, s.observers, result)

	s.state = ShowingFeedback
	s.scheduleNextLocked(s.beginTrialLocked)
}

// Stop ends training and silences the tunable tone.
func (s *PitchMatchingSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		s.log.Debug("stop ignored: already idle")
		return
	}
	s.haltLocked()
}

// ResetTrainingData stops training and clears the matching statistics and
// every registered Resettable.
func (s *PitchMatchingSession) ResetTrainingData() {
	s.Stop()
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
	s.profile.ResetMatching()
	for _, r := range s.resettables {
		r.Reset()
	}
	s.log.Info("matching data reset")
}

func (s *PitchMatchingSession) clearLocked() {
	if s.handle != nil {
		s.stopHandleLocked(s.handle)
		s.handle = nil
	}
	s.challenge = nil
	s.reference = 0
}

// CurrentChallenge returns the challenge in progress.
func (s *PitchMatchingSession) CurrentChallenge() (PitchMatchingChallenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.challenge == nil {
		return PitchMatchingChallenge{}, false
	}
	return *s.challenge, true
}

// CurrentTrial returns the challenge in progress together with the
// reference frequency it was started with. Commits are scored against
// that frequency even if the settings change mid-challenge.
func (s *PitchMatchingSession) CurrentTrial() (c PitchMatchingChallenge, reference Frequency, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.challenge == nil {
		return PitchMatchingChallenge{}, 0, false
	}
	return *s.challenge, s.reference, true
}

// LastResult returns the most recent committed attempt.
func (s *PitchMatchingSession) LastResult() (CompletedPitchMatching, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return CompletedPitchMatching{}, false
	}
	return *s.last, true
}
