package ear

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultFeedbackDelay is how long a result is shown before the next trial.
	DefaultFeedbackDelay = 400 * time.Millisecond

	heartbeatInterval = 100 * time.Millisecond
)

// sessionOptions are the collaborators both sessions share.
type sessionOptions struct {
	player        NotePlayer
	settings      SettingsProvider
	feedbackDelay time.Duration
	logger        *zap.Logger
	clock         func() time.Time
	rand          *rand.Rand
}

// sessionCore holds the trial-loop machinery common to both sessions:
// the state under one mutex, the trial sequence number, the loop and
// feedback contexts, and goroutine bookkeeping.
//
// mu is never held across a call into the NotePlayer that can block.
type sessionCore struct {
	log      *zap.Logger
	player   NotePlayer
	settings SettingsProvider
	delay    time.Duration
	now      func() time.Time
	rng      *lockedRand

	// onHalt clears session-specific fields. Called with mu held.
	onHalt func()

	wg sync.WaitGroup

	mu             sync.Mutex
	state          SessionState
	seq            uint64 // bumped by every new trial and by halt
	loopCtx        context.Context
	loopCancel     context.CancelFunc
	feedbackCancel context.CancelFunc
}

// init fills in defaults and validates o. It must run before the session
// is shared.
func (c *sessionCore) init(name string, o sessionOptions) error {
	if o.player == nil {
		return errors.Wrap(ErrMissingDependency, "note player")
	}
	if o.settings == nil {
		o.settings = StaticSettings(DefaultSettings())
	}
	if o.feedbackDelay == 0 {
		o.feedbackDelay = DefaultFeedbackDelay
	}
	if o.feedbackDelay < 0 {
		return errors.Wrapf(ErrInvalidSettings, "feedback delay %v", o.feedbackDelay)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	c.log = o.logger.Named(name)
	c.player = o.player
	c.settings = o.settings
	c.delay = o.feedbackDelay
	c.now = o.clock
	c.rng = newLockedRand(o.rand)
	c.state = Idle
	return nil
}

// State returns the current phase.
func (c *sessionCore) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// goLocked runs fn on a tracked goroutine.
func (c *sessionCore) goLocked(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// wait blocks until every goroutine the session started has returned.
func (c *sessionCore) wait() {
	c.wg.Wait()
}

// openLocked creates the loop context for a new run.
func (c *sessionCore) openLocked() context.Context {
	c.loopCtx, c.loopCancel = context.WithCancel(context.Background())
	return c.loopCtx
}

// currentLocked reports whether a continuation for trial seq expecting
// state want may still act.
func (c *sessionCore) currentLocked(ctx context.Context, seq uint64, want SessionState) bool {
	return ctx.Err() == nil && c.seq == seq && c.state == want
}

// haltLocked returns the session to Idle: cancels the loop and feedback
// contexts, invalidates outstanding continuations and silences the player.
// The StopAll call is best effort and not ordered with later transitions.
func (c *sessionCore) haltLocked() {
	prev := c.state
	c.seq++
	if c.feedbackCancel != nil {
		c.feedbackCancel()
		c.feedbackCancel = nil
	}
	if c.loopCancel != nil {
		c.loopCancel()
		c.loopCancel = nil
	}
	c.state = Idle
	if c.onHalt != nil {
		c.onHalt()
	}
	c.stopAllLocked()
	c.log.Info("training stopped", zap.Stringer("was", prev))
}

// stopAllLocked silences the player without waiting for it.
func (c *sessionCore) stopAllLocked() {
	c.goLocked(func() {
		if err := c.player.StopAll(context.Background()); err != nil {
			c.log.Warn("stop all failed", zap.Error(err))
		}
	})
}

// playbackFailed halts the session if trial seq is still in state want.
// Cancellations are dropped. Failures of a trial that has already moved on
// are logged without halting.
func (c *sessionCore) playbackFailed(ctx context.Context, seq uint64, want SessionState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if errors.Is(err, context.Canceled) {
		c.log.Debug("playback cancelled", zap.Stringer("state", c.state), zap.Error(err))
		return
	}
	if !c.currentLocked(ctx, seq, want) {
		c.log.Warn("playback failed after trial moved on",
			zap.Stringer("was", want), zap.Stringer("state", c.state), zap.Error(err))
		return
	}
	c.log.Error("playback failed, stopping training", zap.Stringer("state", want), zap.Error(err))
	c.haltLocked()
}

// heartbeat keeps the loop goroutine alive until the session returns to
// Idle or the loop context is cancelled.
func (c *sessionCore) heartbeat(ctx context.Context) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("training loop ended")
			return
		case <-t.C:
			if c.State() == Idle {
				c.log.Debug("training loop ended")
				return
			}
		}
	}
}

// scheduleNextLocked shows feedback for delay and then runs next on the
// feedback goroutine. A pending feedback task is cancelled first.
// next is called with mu held and must return the trial runner, or nil
// when no trial could be started.
func (c *sessionCore) scheduleNextLocked(next func(ctx context.Context) func()) {
	if c.feedbackCancel != nil {
		c.feedbackCancel()
	}
	ctx, cancel := context.WithCancel(c.loopCtx)
	c.feedbackCancel = cancel
	seq := c.seq

	c.goLocked(func() {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		c.mu.Lock()
		if !c.currentLocked(ctx, seq, ShowingFeedback) {
			c.mu.Unlock()
			return
		}
		run := next(ctx)
		c.mu.Unlock()
		if run != nil {
			run()
		}
	})
}
