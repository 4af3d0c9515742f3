package ear

import (
	"math/rand"
	"sync"
	"time"
)

// maxLoudnessOffsetDB is the target-tone gain swing at VaryLoudness = 1.
const maxLoudnessOffsetDB = 5.0

// lockedRand serializes access to a *rand.Rand shared by goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// newLockedRand wraps r; nil seeds a new source from the clock.
func newLockedRand(r *rand.Rand) *lockedRand {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{r: r}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// between returns a uniform int in [lo, hi].
func (l *lockedRand) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo + l.r.Intn(hi-lo+1)
}

// uniform returns a uniform float in [lo, hi).
func (l *lockedRand) uniform(lo, hi float64) float64 {
	return lo + l.Float64()*(hi-lo)
}

func (l *lockedRand) coin() bool {
	return l.Float64() < 0.5
}

// loudnessOffset returns a random gain for the target tone.
// range = vary × 5 dB; offset ∈ [−range, range]
func loudnessOffset(vary float64, rng *lockedRand) AmplitudeDB {
	if vary <= 0 {
		return 0
	}
	r := min(vary, 1) * maxLoudnessOffsetDB
	return AmplitudeDB(rng.uniform(-r, r)).Clamp()
}
