package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"github.com/sky-flux/ear/audio"
	"github.com/sky-flux/ear/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run a training session",
}

var trainComparisonCmd = &cobra.Command{
	Use:   "comparison",
	Short: "Say whether the second tone is higher or lower",
	Long: `Plays a reference tone followed by a detuned copy. Answer with
  h  the second tone was higher
  l  the second tone was lower
  q  quit`,
	Args: cobra.NoArgs,
	RunE: runComparison,
}

var trainMatchingCmd = &cobra.Command{
	Use:   "matching",
	Short: "Tune a detuned tone back onto the reference",
	Long: `Plays a reference tone, then holds a detuned tone. Enter
  <cents>  retune the held tone to that offset from the reference, e.g. -12.5
  ok       commit the current tuning
  q        quit`,
	Args: cobra.NoArgs,
	RunE: runMatching,
}

// trainingContext returns a child of parent that is also cancelled on
// SIGINT or SIGTERM, and a channel carrying the matching environment event.
func trainingContext(parent context.Context) (context.Context, <-chan ear.EnvironmentEvent, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	events := make(chan ear.EnvironmentEvent, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			events <- ear.Backgrounded
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, events, cancel
}

// openTraining watches the configuration file and opens the workspace it
// points at.
func openTraining(ctx context.Context) (*config.Watcher, *workspace, error) {
	watcher, err := config.Watch(configPath, logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "watch %s", configPath)
	}
	file := watcher.File()
	ws, err := openWorkspace(ctx, &file)
	if err != nil {
		watcher.Close()
		return nil, nil, err
	}
	return watcher, ws, nil
}

// syncWriter serializes writes from the input loop and session goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// readLines sends trimmed input lines until r is exhausted or ctx is done.
// A Scan blocked on r outlives ctx; callers select on ctx as well.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// nextLine waits for an input line. ok is false once input ends or ctx is
// cancelled.
func nextLine(ctx context.Context, lines <-chan string) (line string, ok bool) {
	select {
	case <-ctx.Done():
		logger.Info("training interrupted")
		return "", false
	case line, ok = <-lines:
		return line, ok
	}
}

func runComparison(cmd *cobra.Command, _ []string) error {
	ctx, events, cancel := trainingContext(cmd.Context())
	defer cancel()

	watcher, ws, err := openTraining(ctx)
	if err != nil {
		return err
	}
	defer watcher.Close()
	defer ws.Close()

	out := &syncWriter{w: cmd.OutOrStdout()}
	printer := ear.ComparisonObserverFunc(func(c ear.CompletedComparison) error {
		verdict := "wrong"
		if c.IsCorrect() {
			verdict = "correct"
		}
		fmt.Fprintf(out, "%s: %s by %.1f cents\n", verdict, direction(c.Comparison.TargetIsHigher()), c.Comparison.CentDifference())
		return nil
	})

	player := audio.NewClockPlayer(audio.ClockConfig{
		Logger: logger,
		OnTone: func(t audio.Tone) { fmt.Fprintf(out, "  ♪ %.2f Hz\n", float64(t.Frequency)) },
	})
	session, err := ear.NewComparisonSession(ear.ComparisonSessionConfig{
		Player:        player,
		Profile:       ws.profile,
		Settings:      watcher,
		Observers:     []ear.ComparisonObserver{ws.store, ws.profile, ws.timeline, ws.trend, printer},
		Resettables:   []ear.Resettable{ws.timeline, ws.trend},
		FeedbackDelay: ws.file.Training.FeedbackDelay,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	go ear.WatchEnvironment(ctx, events, session)

	fmt.Fprintln(out, "h = higher, l = lower, q = quit")
	session.Start()
	defer session.Stop()

	lines := readLines(ctx, cmd.InOrStdin())
	for {
		line, ok := nextLine(ctx, lines)
		if !ok {
			break
		}
		switch strings.ToLower(line) {
		case "h", "higher":
			session.HandleAnswer(true)
		case "l", "lower":
			session.HandleAnswer(false)
		case "q", "quit":
			return nil
		default:
			fmt.Fprintln(out, "h, l or q")
		}
		if session.State() == ear.Idle {
			return nil
		}
	}
	logger.Debug("comparison training finished", zap.Stringer("state", session.State()))
	return nil
}

func direction(higher bool) string {
	if higher {
		return "higher"
	}
	return "lower"
}

func runMatching(cmd *cobra.Command, _ []string) error {
	ctx, events, cancel := trainingContext(cmd.Context())
	defer cancel()

	watcher, ws, err := openTraining(ctx)
	if err != nil {
		return err
	}
	defer watcher.Close()
	defer ws.Close()

	out := &syncWriter{w: cmd.OutOrStdout()}
	printer := ear.PitchMatchingObserverFunc(func(r ear.CompletedPitchMatching) error {
		fmt.Fprintf(out, "off by %+.1f cents (started %+.1f)\n", float64(r.UserError), float64(r.InitialOffset))
		return nil
	})

	player := audio.NewClockPlayer(audio.ClockConfig{Logger: logger})
	session, err := ear.NewPitchMatchingSession(ear.PitchMatchingSessionConfig{
		Player:        player,
		Profile:       ws.profile,
		Settings:      watcher,
		Observers:     []ear.PitchMatchingObserver{ws.store, ws.profile, printer},
		FeedbackDelay: ws.file.Training.FeedbackDelay,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	go ear.WatchEnvironment(ctx, events, session)

	fmt.Fprintln(out, "<cents> = retune, ok = commit, q = quit")
	session.Start()
	defer session.Stop()

	var offset *ear.Cents
	lines := readLines(ctx, cmd.InOrStdin())
	for {
		line, more := nextLine(ctx, lines)
		if !more {
			break
		}
		challenge, reference, ok := session.CurrentTrial()
		switch strings.ToLower(line) {
		case "q", "quit":
			return nil
		case "ok", "":
			if !ok {
				continue
			}
			c := challenge.InitialOffset
			if offset != nil {
				c = *offset
			}
			session.CommitPitch(reference.Detuned(c))
			offset = nil
		default:
			v, err := strconv.ParseFloat(line, 64)
			if err != nil {
				fmt.Fprintln(out, "enter a cent offset, ok or q")
				continue
			}
			if !ok {
				continue
			}
			c := ear.Cents(v)
			session.AdjustPitch(reference.Detuned(c))
			offset = &c
		}
		if session.State() == ear.Idle {
			return nil
		}
	}
	logger.Debug("pitch matching finished", zap.Stringer("state", session.State()))
	return nil
}
