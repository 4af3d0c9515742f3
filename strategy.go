package ear

import (
	"math/rand"

	"go.uber.org/zap"
)

// NextComparisonStrategy picks the next forced-choice trial. Implementations
// read the profile and may record per-note difficulty through it; they keep
// no other state between calls. last is nil on the first trial.
type NextComparisonStrategy interface {
	NextComparison(p DiscriminationProfile, s Settings, last *CompletedComparison) Comparison
}

// NextChallengeStrategy picks the next pitch-matching challenge.
type NextChallengeStrategy interface {
	NextChallenge(p MatchingProfile, s Settings, last *CompletedPitchMatching) PitchMatchingChallenge
}

// StrategyConfig configures the built-in strategies.
type StrategyConfig struct {
	Logger *zap.Logger // nil → no logging
	Rand   *rand.Rand  // nil → seeded from the clock
}

func (c StrategyConfig) logger(name string) *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger.Named(name)
}

// Compile-time interface checks.
var (
	_ NextComparisonStrategy = (*KazezStrategy)(nil)
	_ NextComparisonStrategy = (*AdaptiveStrategy)(nil)
	_ NextChallengeStrategy  = (*RandomChallengeStrategy)(nil)
)

// newComparison builds a unison comparison with a random direction.
func newComparison(note MIDINote, cents float64, rng *lockedRand) Comparison {
	offset := Cents(cents)
	if !rng.coin() {
		offset = -offset
	}
	return Comparison{Reference: note, Target: DetunedNote{Note: note, Offset: offset}}
}

// KazezStrategy keeps one global difficulty chain and roves the note
// uniformly over the configured range.
//
// Kazez, Kazez, Zembar & Andrews (2001), "A Computer Program for Testing
// (and Improving?) Pitch Perception".
type KazezStrategy struct {
	log *zap.Logger
	rng *lockedRand
}

// NewKazezStrategy returns the default comparison strategy.
func NewKazezStrategy(cfg StrategyConfig) *KazezStrategy {
	return &KazezStrategy{log: cfg.logger("kazez"), rng: newLockedRand(cfg.Rand)}
}

// NextComparison implements NextComparisonStrategy. The cold start uses the
// profile's overall mean when one exists, else the maximum difficulty.
func (k *KazezStrategy) NextComparison(p DiscriminationProfile, s Settings, last *CompletedComparison) Comparison {
	var cents float64
	switch {
	case last != nil:
		cents = nextDifficulty(last.Comparison.CentDifference(), last.IsCorrect(), kazezNarrowing, s)
	default:
		if mean, ok := p.OverallMean(); ok {
			cents = clampCents(mean, s)
		} else {
			cents = s.MaxCentDifference
		}
	}
	note := MIDINote(k.rng.between(int(s.NoteRangeMin), int(s.NoteRangeMax)))
	k.log.Debug("next comparison", zap.Stringer("note", note), zap.Float64("cents", cents))
	return newComparison(note, cents, k.rng)
}

// Adaptive strategy tuning.
const (
	regionalRange     = 12 // semitones either side of the last note
	maxNeighbors      = 5  // trained neighbors considered per direction
	weakSpotCandidate = 10
)

// AdaptiveStrategy blends nearby-note exploration with weak-spot drilling.
// NaturalVsMechanical is the probability of jumping to a weak spot.
// Difficulty follows one chain from the previous trial; the first trial
// borrows from trained neighbors weighted by 1/(1+distance).
type AdaptiveStrategy struct {
	log *zap.Logger
	rng *lockedRand
}

// NewAdaptiveStrategy returns a profile-driven comparison strategy.
func NewAdaptiveStrategy(cfg StrategyConfig) *AdaptiveStrategy {
	return &AdaptiveStrategy{log: cfg.logger("adaptive"), rng: newLockedRand(cfg.Rand)}
}

// NextComparison implements NextComparisonStrategy.
func (a *AdaptiveStrategy) NextComparison(p DiscriminationProfile, s Settings, last *CompletedComparison) Comparison {
	note := a.selectNote(p, s, last)

	var cents float64
	if last == nil {
		cents = clampCents(a.effectiveDifficulty(note, p, s), s)
	} else {
		cents = nextDifficulty(last.Comparison.CentDifference(), last.IsCorrect(), adaptiveNarrowing, s)
		p.SetDifficulty(note, cents)
	}
	a.log.Debug("next comparison", zap.Stringer("note", note), zap.Float64("cents", cents))
	return newComparison(note, cents, a.rng)
}

func (a *AdaptiveStrategy) selectNote(p DiscriminationProfile, s Settings, last *CompletedComparison) MIDINote {
	if last == nil || a.rng.Float64() < s.NaturalVsMechanical {
		return a.weakSpot(p, s)
	}
	center := int(last.Comparison.Reference)
	lo := max(int(s.NoteRangeMin), center-regionalRange)
	hi := min(int(s.NoteRangeMax), center+regionalRange)
	lo, hi = min(lo, int(s.NoteRangeMax)), max(hi, int(s.NoteRangeMin))
	return MIDINote(a.rng.between(lo, hi))
}

// weakSpot picks one of the profile's worst notes inside the range, or any
// note in range when none qualifies.
func (a *AdaptiveStrategy) weakSpot(p DiscriminationProfile, s Settings) MIDINote {
	var inRange []MIDINote
	for _, n := range p.WeakSpots(weakSpotCandidate) {
		if s.IsInRange(n) {
			inRange = append(inRange, n)
		}
	}
	if len(inRange) == 0 {
		return MIDINote(a.rng.between(int(s.NoteRangeMin), int(s.NoteRangeMax)))
	}
	return inRange[a.rng.between(0, len(inRange)-1)]
}

// effectiveDifficulty averages the stored difficulty of note and its nearest
// refined neighbors.
// d = Σ wᵢ·dᵢ / Σ wᵢ, wᵢ = 1 / (1 + |distanceᵢ|)
func (a *AdaptiveStrategy) effectiveDifficulty(note MIDINote, p DiscriminationProfile, s Settings) float64 {
	var weightSum, weighted float64
	add := func(distance int, d float64) {
		w := 1 / (1 + float64(distance))
		weightSum += w
		weighted += w * d
	}

	if st := p.StatsForNote(note); st.IsTrained() || st.CurrentDifficulty != DefaultDifficulty {
		add(0, st.CurrentDifficulty)
	}
	refined := func(n MIDINote) (NoteStats, bool) {
		st := p.StatsForNote(n)
		return st, st.IsTrained() && st.CurrentDifficulty != DefaultDifficulty
	}
	for n, found := note-1, 0; n >= s.NoteRangeMin && found < maxNeighbors; n-- {
		if st, ok := refined(n); ok {
			add(int(note-n), st.CurrentDifficulty)
			found++
		}
	}
	for n, found := note+1, 0; n <= s.NoteRangeMax && found < maxNeighbors; n++ {
		if st, ok := refined(n); ok {
			add(int(n-note), st.CurrentDifficulty)
			found++
		}
	}

	if weightSum == 0 {
		return DefaultDifficulty
	}
	return weighted / weightSum
}

// maxChallengeOffset bounds the initial detuning of a pitch-matching tone.
const maxChallengeOffset = 100.0

// RandomChallengeStrategy starts each pitch-matching challenge on a random
// note in range, detuned uniformly within ±100 cents.
type RandomChallengeStrategy struct {
	log *zap.Logger
	rng *lockedRand
}

// NewRandomChallengeStrategy returns the default pitch-matching strategy.
func NewRandomChallengeStrategy(cfg StrategyConfig) *RandomChallengeStrategy {
	return &RandomChallengeStrategy{log: cfg.logger("challenge"), rng: newLockedRand(cfg.Rand)}
}

// NextChallenge implements NextChallengeStrategy.
func (r *RandomChallengeStrategy) NextChallenge(_ MatchingProfile, s Settings, _ *CompletedPitchMatching) PitchMatchingChallenge {
	c := PitchMatchingChallenge{
		ReferenceNote: MIDINote(r.rng.between(int(s.NoteRangeMin), int(s.NoteRangeMax))),
		InitialOffset: Cents(r.rng.uniform(-maxChallengeOffset, maxChallengeOffset)),
	}
	r.log.Debug("next challenge", zap.Stringer("note", c.ReferenceNote), zap.Float64("offset", float64(c.InitialOffset)))
	return c
}
