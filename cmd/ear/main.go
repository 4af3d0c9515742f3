// Command ear is a terminal pitch-discrimination trainer.
//
//	ear train comparison     higher/lower trials
//	ear train matching       tune a detuned tone back onto the reference
//	ear stats                per-note thresholds and trend
//	ear plot --out p.png     progress chart
//	ear report --out r.pdf   PDF summary
//	ear reset                delete all training history
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"github.com/sky-flux/ear/config"
	"github.com/sky-flux/ear/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ear",
	Short:         "Adaptive pitch-discrimination and pitch-matching trainer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else if file, err := config.Load(configPath); err == nil {
			if lvl, err := file.Logging.ZapLevel(); err == nil {
				cfg.Level = zap.NewAtomicLevelAt(lvl)
			}
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ear.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "History database (default: store.path from the configuration)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	trainCmd.AddCommand(trainComparisonCmd)
	trainCmd.AddCommand(trainMatchingCmd)

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workspace is the training state every command works from: the history
// store and the profile, timeline and trend rebuilt from it.
type workspace struct {
	file     *config.File
	store    *store.Store
	profile  *ear.Profile
	timeline *ear.Timeline
	trend    *ear.TrendAnalyzer
}

func openWorkspace(ctx context.Context, file *config.File) (*workspace, error) {
	path := file.Store.Path
	if dbPath != "" {
		path = dbPath
	}
	st, err := store.Open(path, store.Config{Logger: logger})
	if err != nil {
		return nil, err
	}
	h, err := st.LoadHistory(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	profile := ear.NewProfile(logger)
	tl, trend, err := h.Seed(profile, file.Training.Timeline)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &workspace{file: file, store: st, profile: profile, timeline: tl, trend: trend}, nil
}

func loadWorkspace(ctx context.Context) (*workspace, error) {
	file, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", configPath)
	}
	return openWorkspace(ctx, file)
}

func (w *workspace) Close() error {
	return w.store.Close()
}
