package ear

import (
	"math"
	"testing"
)

const epsilon = 1e-4

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %.6f, want %.6f (diff %.6f)", name, got, want, math.Abs(got-want))
	}
}

func TestKazezNarrow(t *testing.T) {
	// N = 100 × (1 − 0.05 × 10) = 50
	assertFloat(t, "kazezNarrow(100)", kazezNarrow(100, kazezNarrowing), 50)
	// N = 4 × (1 − 0.05 × 2) = 3.6
	assertFloat(t, "kazezNarrow(4)", kazezNarrow(4, kazezNarrowing), 3.6)
	// adaptive: N = 100 × (1 − 0.08 × 10) = 20
	assertFloat(t, "kazezNarrow(100, adaptive)", kazezNarrow(100, adaptiveNarrowing), 20)
}

func TestKazezWiden(t *testing.T) {
	// N = 4 × (1 + 0.09 × 2) = 4.72
	assertFloat(t, "kazezWiden(4)", kazezWiden(4, kazezWidening), 4.72)
	// N = 25 × (1 + 0.09 × 5) = 36.25
	assertFloat(t, "kazezWiden(25)", kazezWiden(25, kazezWidening), 36.25)
}

func TestNextDifficultyClamps(t *testing.T) {
	s := DefaultSettings()
	tests := []struct {
		name    string
		p       float64
		correct bool
		want    float64
	}{
		{"narrow", 100, true, 50},
		{"widen", 4, false, 4.72},
		{"widen clamps to max", 100, false, 100},
		{"narrow clamps to min", 400, true, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloat(t, "nextDifficulty", nextDifficulty(tt.p, tt.correct, kazezNarrowing, s), tt.want)
		})
	}
}

func TestKazezConverges(t *testing.T) {
	// Ten correct answers from 100 cents end well under 10 cents.
	s := DefaultSettings()
	p := 100.0
	for range 10 {
		p = nextDifficulty(p, true, kazezNarrowing, s)
	}
	if p >= 10 {
		t.Errorf("after 10 correct answers difficulty = %.3f, want < 10", p)
	}
}
