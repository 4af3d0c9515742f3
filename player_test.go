package ear

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// fakePlayer returns from Play immediately unless the call is held, in which
// case it blocks until StopAll or ctx cancellation.
type fakePlayer struct {
	mu       sync.Mutex
	plays    []Frequency
	gains    []AmplitudeDB
	stopAlls int
	release  chan struct{}
	handles  []*fakeHandle

	holdAt     map[int]bool  // 1-based Play calls that block
	releaseErr error         // returned by a held call once StopAll releases it
	failAt     int           // 1-based Play call that fails
	failHandle bool          // PlayHandle fails
	handleGate chan struct{} // PlayHandle waits on it when non-nil
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{release: make(chan struct{}), holdAt: map[int]bool{}}
}

func (p *fakePlayer) Play(ctx context.Context, f Frequency, _ time.Duration, _ Velocity, a AmplitudeDB) error {
	p.mu.Lock()
	p.plays = append(p.plays, f)
	p.gains = append(p.gains, a)
	n := len(p.plays)
	hold, fail, release, releaseErr := p.holdAt[n], p.failAt == n, p.release, p.releaseErr
	p.mu.Unlock()

	if fail {
		return errors.Wrap(ErrPlayback, "fake device")
	}
	if !hold {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-release:
		return releaseErr
	}
}

func (p *fakePlayer) PlayHandle(ctx context.Context, f Frequency, _ Velocity, _ AmplitudeDB) (PlaybackHandle, error) {
	p.mu.Lock()
	gate, fail := p.handleGate, p.failHandle
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.Wrap(ErrPlayback, "fake handle")
	}
	h := &fakeHandle{frequencies: []Frequency{f}}
	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()
	return h, nil
}

func (p *fakePlayer) StopAll(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopAlls++
	close(p.release)
	p.release = make(chan struct{})
	return nil
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays)
}

func (p *fakePlayer) stopAllCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopAlls
}

func (p *fakePlayer) handle(i int) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.handles) {
		return nil
	}
	return p.handles[i]
}

type fakeHandle struct {
	mu          sync.Mutex
	frequencies []Frequency
	stops       int
}

func (h *fakeHandle) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	return nil
}

func (h *fakeHandle) AdjustFrequency(_ context.Context, f Frequency) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frequencies = append(h.frequencies, f)
	return nil
}

func (h *fakeHandle) stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops > 0
}

func (h *fakeHandle) adjusted() []Frequency {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Frequency(nil), h.frequencies...)
}

// recorder counts observer notifications.
type recorder struct {
	mu          sync.Mutex
	comparisons []CompletedComparison
	matchings   []CompletedPitchMatching
}

func (r *recorder) ComparisonCompleted(c CompletedComparison) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comparisons = append(r.comparisons, c)
	return nil
}

func (r *recorder) PitchMatchingCompleted(m CompletedPitchMatching) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchings = append(r.matchings, m)
	return nil
}

func (r *recorder) comparisonCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.comparisons)
}

func (r *recorder) matchingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matchings)
}
