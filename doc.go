// Package ear implements adaptive pitch-discrimination training.
//
// ear provides the two training state machines ([ComparisonSession] for
// two-alternative higher/lower judgements and [PitchMatchingSession] for
// continuous pitch matching) together with the online statistics they feed:
// a per-note [Profile] updated with Welford's algorithm, a calendar-bucketed
// [Timeline] with rolling smoothing, and a split-half [TrendAnalyzer].
//
// Audio output, persistence and settings storage are collaborators supplied
// by the caller through small interfaces ([NotePlayer], [ComparisonObserver],
// [SettingsProvider]). Implementations live in the audio, store and config
// subpackages.
//
// Basic usage:
//
//	profile := ear.NewProfile(nil)
//	s, err := ear.NewComparisonSession(ear.ComparisonSessionConfig{
//	    Player:    player,
//	    Profile:   profile,
//	    Observers: []ear.ComparisonObserver{profile},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s.Start()
//	// ... s.HandleAnswer(true) when the user answers "higher"
//	s.Stop()
package ear
