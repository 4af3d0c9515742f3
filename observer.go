package ear

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ComparisonObserver is notified once per answered comparison.
// Persistence, statistics and haptics all plug in through it.
type ComparisonObserver interface {
	ComparisonCompleted(CompletedComparison) error
}

// PitchMatchingObserver is notified once per committed pitch matching.
type PitchMatchingObserver interface {
	PitchMatchingCompleted(CompletedPitchMatching) error
}

// ComparisonObserverFunc adapts a function to ComparisonObserver.
type ComparisonObserverFunc func(CompletedComparison) error

// ComparisonCompleted calls f(c).
func (f ComparisonObserverFunc) ComparisonCompleted(c CompletedComparison) error {
	return f(c)
}

// PitchMatchingObserverFunc adapts a function to PitchMatchingObserver.
type PitchMatchingObserverFunc func(CompletedPitchMatching) error

// PitchMatchingCompleted calls f(r).
func (f PitchMatchingObserverFunc) PitchMatchingCompleted(r CompletedPitchMatching) error {
	return f(r)
}

// Resettable is state that can be returned to its cold-start value.
type Resettable interface {
	Reset()
}

// Haptics plays tactile feedback. Hardware binding is up to the caller.
type Haptics interface {
	PlayIncorrectFeedback()
}

// HapticObserver buzzes on wrong answers only; silence confirms a correct one.
type HapticObserver struct {
	Haptics Haptics
}

// ComparisonCompleted implements ComparisonObserver.
func (h HapticObserver) ComparisonCompleted(c CompletedComparison) error {
	if !c.IsCorrect() && h.Haptics != nil {
		h.Haptics.PlayIncorrectFeedback()
	}
	return nil
}

// notifyComparison calls every observer in registration order. A failing or
// panicking observer is logged and skipped.
func notifyComparison(log *zap.Logger, observers []ComparisonObserver, c CompletedComparison) {
	for i, o := range observers {
		err := guard(func() error { return o.ComparisonCompleted(c) })
		if err != nil {
			log.Warn("comparison observer failed",
				zap.Int("observer", i),
				zap.String("type", fmt.Sprintf("%T", o)),
				zap.Error(err))
		}
	}
}

// notifyPitchMatching is notifyComparison for pitch-matching results.
func notifyPitchMatching(log *zap.Logger, observers []PitchMatchingObserver, r CompletedPitchMatching) {
	for i, o := range observers {
		err := guard(func() error { return o.PitchMatchingCompleted(r) })
		if err != nil {
			log.Warn("pitch matching observer failed",
				zap.Int("observer", i),
				zap.String("type", fmt.Sprintf("%T", o)),
				zap.Error(err))
		}
	}
}

// guard runs fn and converts a panic into an ErrObserver error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrObserver, "panic: %v", r)
		}
	}()
	return fn()
}
