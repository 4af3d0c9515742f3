package ear

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ComparisonSessionConfig configures a ComparisonSession.
// Player and Profile are required; zero values elsewhere select defaults.
type ComparisonSessionConfig struct {
	Player      NotePlayer
	Profile     DiscriminationProfile
	Strategy    NextComparisonStrategy // nil → KazezStrategy
	Settings    SettingsProvider       // nil → DefaultSettings
	Observers   []ComparisonObserver   // notified in order
	Resettables []Resettable           // cleared by ResetTrainingData

	FeedbackDelay time.Duration    // zero → DefaultFeedbackDelay
	Logger        *zap.Logger      // nil → no logging
	Clock         func() time.Time // nil → time.Now
	Rand          *rand.Rand       // loudness variation; nil → seeded from the clock
}

// ComparisonSnapshot is a consistent read of a ComparisonSession's
// observable state.
type ComparisonSnapshot struct {
	State             SessionState
	Comparison        *Comparison
	LastResult        *CompletedComparison
	SessionBest       *float64
	ShowFeedback      bool
	LastAnswerCorrect *bool
}

// ComparisonSession runs forced-choice trials: a reference tone, a detuned
// target tone, then a higher/lower answer.
//
//	Idle → PlayingReference → PlayingTarget → AwaitingAnswer → ShowingFeedback → PlayingReference …
//
// Answers are accepted while the target is still sounding; the tone is cut
// short. Any playback failure stops the session without notifying observers.
// Observers run with the session lock held and must not call back into the
// session.
type ComparisonSession struct {
	sessionCore

	profile     DiscriminationProfile
	strategy    NextComparisonStrategy
	observers   []ComparisonObserver
	resettables []Resettable

	// guarded by sessionCore.mu
	current      *Comparison
	last         *CompletedComparison
	sessionBest  *float64
	showFeedback bool
	lastCorrect  *bool
}

// comparisonTrial is everything a trial needs after leaving the lock.
type comparisonTrial struct {
	seq        uint64
	duration   time.Duration
	reference  Frequency
	target     Frequency
	targetGain AmplitudeDB
}

// NewComparisonSession creates an idle session.
func NewComparisonSession(cfg ComparisonSessionConfig) (*ComparisonSession, error) {
	if cfg.Profile == nil {
		return nil, errors.Wrap(ErrMissingDependency, "discrimination profile")
	}
	if cfg.Strategy == nil {
		cfg.Strategy = NewKazezStrategy(StrategyConfig{Logger: cfg.Logger})
	}
	s := &ComparisonSession{
		profile:     cfg.Profile,
		strategy:    cfg.Strategy,
		observers:   append([]ComparisonObserver(nil), cfg.Observers...),
		resettables: append([]Resettable(nil), cfg.Resettables...),
	}
	err := s.init("comparison", sessionOptions{
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
// The first trial is set up before Start returns, so State reports
// PlayingReference immediately.
func (s *ComparisonSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		s.log.Warn("start ignored", zap.Stringer("state", s.state))
		return
	}
	s.log.Info("starting training")
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

// beginTrialLocked picks the next comparison and enters PlayingReference.
// It returns nil, after halting, when frequencies cannot be computed.
func (s *ComparisonSession) beginTrialLocked(ctx context.Context) func() {
	settings := s.settings.Settings()
	c := s.strategy.NextComparison(s.profile, settings, s.last)

	ref, err := FrequencyOf(DetunedNote{Note: c.Reference}, settings.ReferencePitch)
	if err != nil {
		s.log.Error("reference frequency", zap.Error(err))
		s.haltLocked()
		return nil
	}
	target, err := FrequencyOf(c.Target, settings.ReferencePitch)
	if err != nil {
		s.log.Error("target frequency", zap.Error(err))
		s.haltLocked()
		return nil
	}

	s.seq++
	s.current = &c
	s.state = PlayingReference
	t := comparisonTrial{
		seq:        s.seq,
		duration:   settings.NoteDuration,
		reference:  ref,
		target:     target,
		targetGain: loudnessOffset(settings.VaryLoudness, s.rng),
	}
	s.log.Info("comparison",
		zap.Stringer("note", c.Reference),
		zap.Float64("reference_hz", float64(ref)),
		zap.Float64("target_hz", float64(target)),
		zap.Float64("cents", float64(c.Target.Offset)),
		zap.Float32("target_db", float32(t.targetGain)))
	return func() { s.playTrial(ctx, t) }
}

// playTrial sounds both tones. Each continuation re-checks the context,
// trial number and state before acting.
func (s *ComparisonSession) playTrial(ctx context.Context, t comparisonTrial) {
	if err := s.player.Play(ctx, t.reference, t.duration, DefaultVelocity, 0); err != nil {
		s.playbackFailed(ctx, t.seq, PlayingReference, err)
		return
	}

	s.mu.Lock()
	if !s.currentLocked(ctx, t.seq, PlayingReference) {
		s.mu.Unlock()
		s.log.Debug("trial abandoned after reference tone")
		return
	}
	s.state = PlayingTarget
	s.mu.Unlock()

	if err := s.player.Play(ctx, t.target, t.duration, DefaultVelocity, t.targetGain); err != nil {
		s.playbackFailed(ctx, t.seq, PlayingTarget, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLocked(ctx, t.seq, PlayingTarget) {
		s.state = AwaitingAnswer
		s.log.Debug("awaiting answer")
	}
}

// HandleAnswer records the user's judgement. Valid in AwaitingAnswer and
// PlayingTarget; otherwise it is logged and ignored.
func (s *ComparisonSession) HandleAnswer(higher bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != AwaitingAnswer && s.state != PlayingTarget {
		s.log.Warn("answer ignored", zap.Stringer("state", s.state))
		return
	}
	if s.current == nil {
		s.log.Error("answer without a current comparison")
		return
	}
	if s.state == PlayingTarget {
		s.stopAllLocked()
	}

	completed := CompletedComparison{
		Comparison:     *s.current,
		AnsweredHigher: higher,
		Timestamp:      s.now(),
	}
	correct := completed.IsCorrect()
	s.last = &completed
	if diff := completed.Comparison.CentDifference(); correct && (s.sessionBest == nil || diff < *s.sessionBest) {
		s.sessionBest = &diff
	}
	s.log.Info("answer",
		zap.Bool("higher", higher),
		zap.Bool("correct", correct),
		zap.Float64("cents", completed.Comparison.CentDifference()))

	notifyComparison(s.log, s.observers, completed)

	s.lastCorrect = &correct
	s.showFeedback = true
	s.state = ShowingFeedback
	s.scheduleNextLocked(func(ctx context.Context) func() {
		s.showFeedback = false
		return s.beginTrialLocked(ctx)
	})
}

// Stop ends training. Stopping an idle session does nothing.
func (s *ComparisonSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		s.log.Debug("stop ignored: already idle")
		return
	}
	s.haltLocked()
}

// ResetTrainingData stops training and returns the profile and every
// registered Resettable to cold start.
func (s *ComparisonSession) ResetTrainingData() {
	s.Stop()
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	s.profile.Reset()
	for _, r := range s.resettables {
		r.Reset()
	}
	s.log.Info("training data reset")
}

func (s *ComparisonSession) clearLocked() {
	s.current = nil
	s.last = nil
	s.sessionBest = nil
	s.showFeedback = false
	s.lastCorrect = nil
}

// CurrentComparison returns the trial in progress.
func (s *ComparisonSession) CurrentComparison() (Comparison, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Comparison{}, false
	}
	return *s.current, true
}

// CurrentDifficulty returns the cent difference of the trial in progress.
func (s *ComparisonSession) CurrentDifficulty() (float64, bool) {
	c, ok := s.CurrentComparison()
	return c.CentDifference(), ok
}

// LastResult returns the most recent answered comparison of this run.
func (s *ComparisonSession) LastResult() (CompletedComparison, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return CompletedComparison{}, false
	}
	return *s.last, true
}

// SessionBest returns the smallest cent difference answered correctly
// since Start.
func (s *ComparisonSession) SessionBest() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionBest == nil {
		return 0, false
	}
	return *s.sessionBest, true
}

// ShowFeedback reports whether the last result is being displayed.
func (s *ComparisonSession) ShowFeedback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showFeedback
}

// LastAnswerCorrect reports the correctness of the last answer.
func (s *ComparisonSession) LastAnswerCorrect() (correct, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCorrect == nil {
		return false, false
	}
	return *s.lastCorrect, true
}

// Snapshot returns all observable state under one lock.
func (s *ComparisonSession) Snapshot() ComparisonSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := ComparisonSnapshot{State: s.state, ShowFeedback: s.showFeedback}
	if s.current != nil {
		c := *s.current
		snap.Comparison = &c
	}
	if s.last != nil {
		l := *s.last
		snap.LastResult = &l
	}
	if s.sessionBest != nil {
		b := *s.sessionBest
		snap.SessionBest = &b
	}
	if s.lastCorrect != nil {
		c := *s.lastCorrect
		snap.LastAnswerCorrect = &c
	}
	return snap
}
