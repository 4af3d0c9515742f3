package store

import (
	"context"

	"github.com/sky-flux/ear"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// History is the full persisted record set, oldest first.
type History struct {
	Comparisons    []ear.ComparisonRecord
	PitchMatchings []ear.PitchMatchingRecord
}

// LoadHistory reads both record tables concurrently.
func (s *Store) LoadHistory(ctx context.Context) (History, error) {
	var h History
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.Comparisons, err = s.Comparisons(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		h.PitchMatchings, err = s.PitchMatchings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return History{}, err
	}
	s.log.Debug("history loaded",
		zap.Int("comparisons", len(h.Comparisons)),
		zap.Int("pitch_matchings", len(h.PitchMatchings)))
	return h, nil
}

// Seed replays h into p (when non-nil) and builds a timeline and trend
// analyzer from the comparison records.
func (h History) Seed(p *ear.Profile, cfg ear.TimelineConfig) (*ear.Timeline, *ear.TrendAnalyzer, error) {
	if p != nil {
		p.Replay(h.Comparisons, h.PitchMatchings)
	}
	tl, err := ear.NewTimeline(cfg, h.Comparisons)
	if err != nil {
		return nil, nil, err
	}
	return tl, ear.NewTrendAnalyzer(h.Comparisons), nil
}
