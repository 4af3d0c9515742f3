package ear

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/stat"
)

func TestProfileColdStart(t *testing.T) {
	p := NewProfile(nil)
	for _, n := range []MIDINote{0, 60, 127} {
		got := p.StatsForNote(n)
		if diff := cmp.Diff(coldNoteStats(), got); diff != "" {
			t.Errorf("StatsForNote(%v) mismatch (-want +got):\n%s", n, diff)
		}
	}
	if _, ok := p.OverallMean(); ok {
		t.Error("OverallMean defined on cold profile")
	}
	if _, ok := p.OverallStdDev(); ok {
		t.Error("OverallStdDev defined on cold profile")
	}
	if _, ok := p.MatchingMean(); ok {
		t.Error("MatchingMean defined on cold profile")
	}
}

func TestProfileUpdateMeanStdDev(t *testing.T) {
	p := NewProfile(nil)
	xs := []float64{12, 8.5, 30, 4, 4, 17.25}
	for i, x := range xs {
		p.Update(60, x, i%2 == 0) // correctness does not gate inclusion
	}
	s := p.StatsForNote(60)
	if s.SampleCount != len(xs) {
		t.Fatalf("SampleCount = %d, want %d", s.SampleCount, len(xs))
	}
	assertFloat(t, "Mean", s.Mean, stat.Mean(xs, nil))
	assertFloat(t, "StdDev", s.StdDev, stat.StdDev(xs, nil))
	if s.M2 < 0 {
		t.Errorf("M2 = %f, want >= 0", s.M2)
	}
}

func TestProfileUpdateInvalidNoteIgnored(t *testing.T) {
	p := NewProfile(nil)
	p.Update(128, 10, true)
	p.Update(-1, 10, true)
	if _, ok := p.OverallMean(); ok {
		t.Error("invalid notes must not train the profile")
	}
	if got := p.StatsForNote(200); got != coldNoteStats() {
		t.Errorf("StatsForNote(200) = %+v, want cold value", got)
	}
}

func TestWeakSpotsColdProfile(t *testing.T) {
	p := NewProfile(nil)
	got := p.WeakSpots(128)
	want := make([]MIDINote, 128)
	for i := range want {
		want[i] = MIDINote(i)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WeakSpots(128) mismatch (-want +got):\n%s", diff)
	}
	for _, n := range got {
		if c := p.StatsForNote(n).SampleCount; c != 0 {
			t.Errorf("note %v SampleCount = %d, want 0", n, c)
		}
	}
}

func TestWeakSpotsClampsCount(t *testing.T) {
	p := NewProfile(nil)
	if got := len(p.WeakSpots(-3)); got != 0 {
		t.Errorf("len(WeakSpots(-3)) = %d, want 0", got)
	}
	if got := len(p.WeakSpots(500)); got != NoteCount {
		t.Errorf("len(WeakSpots(500)) = %d, want %d", got, NoteCount)
	}
}

func TestWeakSpotsDistinctMeans(t *testing.T) {
	// (i × 37) mod 128 is a permutation of 0..127.
	p := NewProfile(nil)
	value := func(n int) float64 { return float64((n * 37) % 128) }
	for n := range NoteCount {
		p.Update(MIDINote(n), value(n), true)
	}

	var want []MIDINote
	for v := 127; v > 122; v-- {
		for n := range NoteCount {
			if value(n) == float64(v) {
				want = append(want, MIDINote(n))
			}
		}
	}
	if diff := cmp.Diff(want, p.WeakSpots(5)); diff != "" {
		t.Errorf("WeakSpots(5) mismatch (-want +got):\n%s", diff)
	}
}

func TestWeakSpotsTiesAscending(t *testing.T) {
	p := NewProfile(nil)
	for n := range NoteCount {
		p.Update(MIDINote(n), 1, true)
	}
	for _, n := range []MIDINote{90, 7, 40} {
		p.Update(n, 9, false) // mean 5
	}
	want := []MIDINote{7, 40, 90}
	if diff := cmp.Diff(want, p.WeakSpots(3)); diff != "" {
		t.Errorf("WeakSpots(3) mismatch (-want +got):\n%s", diff)
	}
}

func TestWeakSpotsUntrainedFirst(t *testing.T) {
	p := NewProfile(nil)
	for n := range NoteCount {
		if n != 100 {
			p.Update(MIDINote(n), 1000, true)
		}
	}
	if got := p.WeakSpots(1); got[0] != 100 {
		t.Errorf("WeakSpots(1) = %v, want [100]", got)
	}
}

func TestOverallMeanStdDev(t *testing.T) {
	p := NewProfile(nil)
	p.Update(40, 10, true)
	p.Update(40, 20, true) // note mean 15
	if m, ok := p.OverallMean(); !ok || m != 15 {
		t.Errorf("OverallMean = %v, %v, want 15, true", m, ok)
	}
	if _, ok := p.OverallStdDev(); ok {
		t.Error("OverallStdDev defined with one trained note")
	}
	p.Update(50, 25, true)
	m, _ := p.OverallMean()
	assertFloat(t, "OverallMean", m, 20)
	sd, ok := p.OverallStdDev()
	if !ok {
		t.Fatal("OverallStdDev undefined with two trained notes")
	}
	// sample stdDev of {15, 25}
	assertFloat(t, "OverallStdDev", sd, math.Sqrt(50))
}

func TestAverageThreshold(t *testing.T) {
	p := NewProfile(nil)
	p.Update(40, 10, true)
	p.Update(45, 30, true)
	p.Update(80, 100, true)
	if got, ok := p.AverageThreshold(40, 45); !ok || got != 20 {
		t.Errorf("AverageThreshold(40, 45) = %v, %v, want 20, true", got, ok)
	}
	if _, ok := p.AverageThreshold(50, 70); ok {
		t.Error("AverageThreshold(50, 70) defined with no trained notes")
	}
	if got, ok := p.AverageThreshold(-10, 200); !ok || got != 140.0/3 {
		t.Errorf("AverageThreshold(-10, 200) = %v, %v, want %v", got, ok, 140.0/3)
	}
}

func TestSetDifficulty(t *testing.T) {
	p := NewProfile(nil)
	p.SetDifficulty(60, 12.5)
	if got := p.StatsForNote(60).CurrentDifficulty; got != 12.5 {
		t.Errorf("CurrentDifficulty = %v, want 12.5", got)
	}
	if p.StatsForNote(60).IsTrained() {
		t.Error("SetDifficulty must not add a sample")
	}
}

func TestProfileMatching(t *testing.T) {
	p := NewProfile(nil)
	p.UpdateMatching(60, -10)
	if _, ok := p.MatchingStdDev(); ok {
		t.Error("MatchingStdDev defined with one sample")
	}
	p.UpdateMatching(62, 20)
	p.UpdateMatching(64, -30)
	if n := p.MatchingSampleCount(); n != 3 {
		t.Errorf("MatchingSampleCount = %d, want 3", n)
	}
	m, _ := p.MatchingMean()
	assertFloat(t, "MatchingMean", m, 20) // absolute errors
	sd, _ := p.MatchingStdDev()
	assertFloat(t, "MatchingStdDev", sd, 10)
}

func TestProfileResetIndependence(t *testing.T) {
	p := NewProfile(nil)
	p.Update(60, 10, true)
	p.UpdateMatching(60, 5)

	p.Reset()
	if _, ok := p.OverallMean(); ok {
		t.Error("Reset left discrimination data")
	}
	if n := p.MatchingSampleCount(); n != 1 {
		t.Errorf("Reset touched matching: count = %d, want 1", n)
	}

	p.Update(60, 10, true)
	p.ResetMatching()
	if n := p.MatchingSampleCount(); n != 0 {
		t.Errorf("ResetMatching count = %d, want 0", n)
	}
	if s := p.StatsForNote(60); s.SampleCount != 1 {
		t.Errorf("ResetMatching touched discrimination: count = %d, want 1", s.SampleCount)
	}
}

func TestProfileObserverAndReplay(t *testing.T) {
	p := NewProfile(nil)
	err := p.ComparisonCompleted(CompletedComparison{
		Comparison:     Comparison{Reference: 60, Target: DetunedNote{Note: 60, Offset: -12}},
		AnsweredHigher: true,
		Timestamp:      t0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if s := p.StatsForNote(60); s.SampleCount != 1 || s.Mean != 12 {
		t.Errorf("after observer: %+v, want one sample of 12", s)
	}
	_ = p.PitchMatchingCompleted(CompletedPitchMatching{ReferenceNote: 60, UserError: -4})
	if m, _ := p.MatchingMean(); m != 4 {
		t.Errorf("MatchingMean = %v, want 4", m)
	}

	q := NewProfile(nil)
	q.Replay(
		[]ComparisonRecord{{ReferenceNote: 60, TargetNote: 60, TargetOffset: -12, Timestamp: t0}},
		[]PitchMatchingRecord{{ReferenceNote: 60, UserError: -4, Timestamp: t0}},
	)
	if diff := cmp.Diff(p.StatsForNote(60), q.StatsForNote(60)); diff != "" {
		t.Errorf("Replay mismatch (-observer +replay):\n%s", diff)
	}
}
