package ear

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// EnvironmentEvent is a platform signal that may affect audio playback.
type EnvironmentEvent int

const (
	InterruptionBegan       EnvironmentEvent = iota + 1 // Another app took the audio output.
	InterruptionEnded                                   // Audio output returned.
	RouteDeviceDisconnected                             // Headphones or interface unplugged.
	RouteChanged                                        // Any other route change.
	Backgrounded                                        // App left the foreground.
	Foregrounded                                        // App returned.
)

var environmentNames = [...]string{
	InterruptionBegan:       "InterruptionBegan",
	InterruptionEnded:       "InterruptionEnded",
	RouteDeviceDisconnected: "RouteDeviceDisconnected",
	RouteChanged:            "RouteChanged",
	Backgrounded:            "Backgrounded",
	Foregrounded:            "Foregrounded",
}

func (e EnvironmentEvent) String() string {
	if e >= InterruptionBegan && e <= Foregrounded {
		return environmentNames[e]
	}
	return fmt.Sprintf("EnvironmentEvent(%d)", int(e))
}

// StopsTraining reports whether e must stop a running session. Training
// never resumes on its own.
func (e EnvironmentEvent) StopsTraining() bool {
	switch e {
	case InterruptionBegan, RouteDeviceDisconnected, Backgrounded:
		return true
	}
	return false
}

// EnvironmentHandler reacts to environment events. Both sessions implement it.
type EnvironmentHandler interface {
	HandleEnvironment(EnvironmentEvent)
}

// Compile-time interface checks.
var (
	_ EnvironmentHandler = (*ComparisonSession)(nil)
	_ EnvironmentHandler = (*PitchMatchingSession)(nil)
)

// handleEnvironment logs e and calls stop when e requires it.
func handleEnvironment(log *zap.Logger, e EnvironmentEvent, stop func()) {
	if !e.StopsTraining() {
		log.Info("environment event, continuing", zap.Stringer("event", e))
		return
	}
	log.Info("environment event, stopping", zap.Stringer("event", e))
	stop()
}

// HandleEnvironment implements EnvironmentHandler.
func (s *ComparisonSession) HandleEnvironment(e EnvironmentEvent) {
	handleEnvironment(s.log, e, s.Stop)
}

// HandleEnvironment implements EnvironmentHandler.
func (s *PitchMatchingSession) HandleEnvironment(e EnvironmentEvent) {
	handleEnvironment(s.log, e, s.Stop)
}

// WatchEnvironment forwards events to h until ctx is done or events is
// closed.
func WatchEnvironment(ctx context.Context, events <-chan EnvironmentEvent, h EnvironmentHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			h.HandleEnvironment(e)
		}
	}
}
