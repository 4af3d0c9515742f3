package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/sky-flux/ear/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	plotOut   string
	reportOut string
	assumeYes bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show thresholds, trend and weakest notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ws, err := loadWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()
		s := report.Summarize(time.Now(), ws.profile, ws.trend, ws.timeline)
		fmt.Fprintln(cmd.OutOrStdout(), renderStats(s))
		return nil
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Write the progress chart as a PNG",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ws, err := loadWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()
		png, err := report.TimelinePNG(ws.timeline, report.DefaultWidth, report.DefaultHeight)
		if err != nil {
			return err
		}
		if err := os.WriteFile(plotOut, png, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", plotOut)
		}
		logger.Info("chart written", zap.String("path", plotOut))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a PDF summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ws, err := loadWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		chart, err := report.TimelinePNG(ws.timeline, 0, 0)
		if err != nil && !errors.Is(err, report.ErrNoData) {
			return err
		}
		f, err := os.Create(reportOut)
		if err != nil {
			return errors.Wrapf(err, "create %s", reportOut)
		}
		s := report.Summarize(time.Now(), ws.profile, ws.trend, ws.timeline)
		if err := report.WritePDF(f, s, chart); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "close %s", reportOut)
		}
		logger.Info("report written", zap.String("path", reportOut))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all training history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !assumeYes {
			return errors.New("reset deletes every record; pass --yes to confirm")
		}
		ws, err := loadWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()
		return resetHistory(cmd.Context(), ws, cmd.OutOrStdout())
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "progress.png", "Output file")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "report.pdf", "Output file")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm deletion")
}

func resetHistory(ctx context.Context, ws *workspace, out io.Writer) error {
	if err := ws.store.DeleteAll(ctx); err != nil {
		return err
	}
	ws.profile.Reset()
	ws.profile.ResetMatching()
	ws.timeline.Reset()
	ws.trend.Reset()
	fmt.Fprintf(out, "deleted all history in %s\n", ws.store.Path())
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7c3aed"))
	labelStyle = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("#6b7280"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	weakStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7c3aed")).
			Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func renderStats(s report.Summary) string {
	lines := []string{titleStyle.Render("Pitch discrimination")}
	lines = append(lines, row("Comparisons", fmt.Sprintf("%d", s.Comparisons)))
	if s.Comparisons > 0 {
		lines = append(lines, row("Accuracy", fmt.Sprintf("%.1f%%", 100*s.Accuracy)))
	}
	if s.HasThreshold {
		lines = append(lines, row("Mean threshold", fmt.Sprintf("%.1f ± %.1f cents", s.ThresholdMean, s.ThresholdSD)))
	}
	trend := "not enough data"
	if s.HasTrend {
		trend = s.Trend.String()
	}
	lines = append(lines, row("Trend", trend))

	lines = append(lines, "", titleStyle.Render("Pitch matching"))
	lines = append(lines, row("Attempts", fmt.Sprintf("%d", s.Matchings)))
	if s.Matchings > 0 {
		lines = append(lines, row("Mean error", fmt.Sprintf("%.1f ± %.1f cents", s.MatchingMean, s.MatchingSD)))
	}

	var weak []string
	for _, r := range s.WeakSpots {
		if r.Stats.IsTrained() {
			weak = append(weak, fmt.Sprintf("%s %.1fc", r.Note, r.Stats.Mean))
		} else {
			weak = append(weak, r.Note.String())
		}
	}
	if len(weak) > 0 {
		lines = append(lines, "", titleStyle.Render("Weakest notes"), weakStyle.Render(strings.Join(weak, "  ")))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
