package ear

import (
	"math/rand"
	"testing"
)

func seeded(seed int64) StrategyConfig {
	return StrategyConfig{Rand: rand.New(rand.NewSource(seed))}
}

func TestKazezColdStart(t *testing.T) {
	k := NewKazezStrategy(seeded(1))
	s := DefaultSettings()

	c := k.NextComparison(NewProfile(nil), s, nil)
	assertFloat(t, "cold difficulty", c.CentDifference(), s.MaxCentDifference)

	p := NewProfile(nil)
	p.Update(60, 30, true)
	c = k.NextComparison(p, s, nil)
	assertFloat(t, "profile mean difficulty", c.CentDifference(), 30)

	p.Reset()
	p.Update(60, 500, true)
	c = k.NextComparison(p, s, nil)
	assertFloat(t, "clamped profile mean", c.CentDifference(), s.MaxCentDifference)
}

func TestKazezChain(t *testing.T) {
	k := NewKazezStrategy(seeded(2))
	s := DefaultSettings()
	last := CompletedComparison{
		Comparison:     Comparison{Reference: 60, Target: DetunedNote{Note: 60, Offset: -100}},
		AnsweredHigher: false,
	}
	c := k.NextComparison(NewProfile(nil), s, &last)
	assertFloat(t, "after correct", c.CentDifference(), 50)

	last.Comparison.Target.Offset = 4 // higher, answered lower: wrong
	c = k.NextComparison(NewProfile(nil), s, &last)
	assertFloat(t, "after wrong", c.CentDifference(), 4.72)
}

func TestKazezRovesNoteAndDirection(t *testing.T) {
	k := NewKazezStrategy(seeded(3))
	s := DefaultSettings()
	p := NewProfile(nil)
	var higher, lower int
	for range 500 {
		c := k.NextComparison(p, s, nil)
		if !s.IsInRange(c.Reference) {
			t.Fatalf("note %v outside %v..%v", c.Reference, s.NoteRangeMin, s.NoteRangeMax)
		}
		if c.Target.Note != c.Reference {
			t.Fatalf("target note %v != reference %v", c.Target.Note, c.Reference)
		}
		if c.TargetIsHigher() {
			higher++
		} else {
			lower++
		}
	}
	if higher == 0 || lower == 0 {
		t.Errorf("direction not randomized: %d higher, %d lower", higher, lower)
	}
}

func TestAdaptiveEffectiveDifficulty(t *testing.T) {
	a := NewAdaptiveStrategy(seeded(4))
	s := DefaultSettings()
	p := NewProfile(nil)

	assertFloat(t, "no data", a.effectiveDifficulty(60, p, s), DefaultDifficulty)

	// Neighbors at distance 1 (20 cents) and 2 (40 cents).
	// d = (20/2 + 40/3) / (1/2 + 1/3) = 28
	p.Update(61, 5, true)
	p.SetDifficulty(61, 20)
	p.Update(58, 5, true)
	p.SetDifficulty(58, 40)
	assertFloat(t, "weighted neighbors", a.effectiveDifficulty(60, p, s), 28)

	// Trained notes still at the default difficulty are not evidence.
	p.Update(59, 5, true)
	assertFloat(t, "unrefined neighbor ignored", a.effectiveDifficulty(60, p, s), 28)

	// The note itself counts at distance 0 once refined.
	p.SetDifficulty(60, 10)
	// d = (10 + 10 + 40/3) / (1 + 1/2 + 1/3)
	assertFloat(t, "self included", a.effectiveDifficulty(60, p, s), (10+10+40.0/3)/(1+0.5+1.0/3))
}

func TestAdaptiveNeighborLimit(t *testing.T) {
	a := NewAdaptiveStrategy(seeded(5))
	s := DefaultSettings()
	p := NewProfile(nil)
	for n := MIDINote(61); n <= 70; n++ {
		p.Update(n, 1, true)
		p.SetDifficulty(n, float64(n-60)) // 1..10 cents
	}
	// Only notes 61..65 participate.
	var ws, wd float64
	for d := 1; d <= maxNeighbors; d++ {
		w := 1 / (1 + float64(d))
		ws += w
		wd += w * float64(d)
	}
	assertFloat(t, "limited neighbors", a.effectiveDifficulty(60, p, s), wd/ws)
}

func TestAdaptiveChainRecordsDifficulty(t *testing.T) {
	a := NewAdaptiveStrategy(seeded(6))
	s := DefaultSettings()
	p := NewProfile(nil)
	last := CompletedComparison{
		Comparison:     Comparison{Reference: 60, Target: DetunedNote{Note: 60, Offset: 100}},
		AnsweredHigher: true,
	}
	c := a.NextComparison(p, s, &last)
	assertFloat(t, "narrowed", c.CentDifference(), 20)
	if got := p.StatsForNote(c.Reference).CurrentDifficulty; got != c.CentDifference() {
		t.Errorf("profile difficulty = %v, want %v", got, c.CentDifference())
	}
}

func TestAdaptiveNaturalStaysNearby(t *testing.T) {
	a := NewAdaptiveStrategy(seeded(7))
	s := DefaultSettings()
	s.NaturalVsMechanical = 0
	p := NewProfile(nil)
	last := CompletedComparison{Comparison: Comparison{Reference: 40, Target: DetunedNote{Note: 40, Offset: 10}}}
	for range 200 {
		c := a.NextComparison(p, s, &last)
		if c.Reference < s.NoteRangeMin || c.Reference > 40+regionalRange {
			t.Fatalf("natural selection picked %v, want within %v..%v", c.Reference, s.NoteRangeMin, 40+regionalRange)
		}
	}
}

func TestAdaptiveMechanicalPicksWeakSpots(t *testing.T) {
	a := NewAdaptiveStrategy(seeded(8))
	s := DefaultSettings()
	s.NaturalVsMechanical = 1
	p := NewProfile(nil)
	for n := range NoteCount {
		p.Update(MIDINote(n), 1, true)
	}
	p.Update(50, 200, false)
	last := CompletedComparison{Comparison: Comparison{Reference: 80, Target: DetunedNote{Note: 80, Offset: 10}}}
	// The top ten weak spots are 50 followed by the tied notes 0..8, which
	// are all below the range.
	for range 20 {
		if c := a.NextComparison(p, s, &last); c.Reference != 50 {
			t.Fatalf("mechanical selection picked %v, want 50", c.Reference)
		}
	}
}

func TestRandomChallenge(t *testing.T) {
	r := NewRandomChallengeStrategy(seeded(9))
	s := DefaultSettings()
	var neg, pos bool
	for range 500 {
		c := r.NextChallenge(NewProfile(nil), s, nil)
		if !s.IsInRange(c.ReferenceNote) {
			t.Fatalf("challenge note %v out of range", c.ReferenceNote)
		}
		if c.InitialOffset.Magnitude() > maxChallengeOffset {
			t.Fatalf("offset %v beyond ±%v", c.InitialOffset, maxChallengeOffset)
		}
		neg = neg || c.InitialOffset < 0
		pos = pos || c.InitialOffset > 0
	}
	if !neg || !pos {
		t.Error("offsets not spread on both sides")
	}
}
