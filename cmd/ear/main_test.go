package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sky-flux/ear/report"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by session goroutines while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// clearContexts drops the context a previous run left on every command so
// the next run hands its own context down to the subcommand.
func clearContexts(cmd *cobra.Command) {
	cmd.SetContext(nil)
	for _, c := range cmd.Commands() {
		clearContexts(c)
	}
}

// prepare points the root command at a fresh config and database in dir.
func prepare(dir string, in io.Reader, args ...string) *lockedBuffer {
	out := &lockedBuffer{}
	clearContexts(rootCmd)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "ear.yaml"),
		"--db", filepath.Join(dir, "history.db"),
	}, args...))
	return out
}

// execute runs the root command against a fresh config and database in dir.
func execute(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	out := prepare(dir, strings.NewReader(stdin), args...)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStatsOnEmptyHistory(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Comparisons")
	assert.Contains(t, out, "not enough data")
}

func TestPlotWithoutData(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "", "plot", "--out", filepath.Join(dir, "p.png"))
	assert.ErrorIs(t, err, report.ErrNoData)
}

func TestReportWithoutData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.pdf")
	_, err := execute(t, dir, "", "report", "--out", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestResetNeedsConfirmation(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "", "reset")
	assert.Error(t, err)

	out, err := execute(t, dir, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted all history")
}

func TestTrainComparisonQuits(t *testing.T) {
	out, err := execute(t, t.TempDir(), "x\nq\n", "train", "comparison")
	require.NoError(t, err)
	assert.Contains(t, out, "h = higher")
	assert.Contains(t, out, "h, l or q")
}

func TestTrainMatchingQuits(t *testing.T) {
	out, err := execute(t, t.TempDir(), "sharp\nq\n", "train", "matching")
	require.NoError(t, err)
	assert.Contains(t, out, "enter a cent offset")
}

func TestTrainStopsWhenCancelledWithOpenInput(t *testing.T) {
	for _, tc := range []struct {
		name   string
		prompt string
	}{
		{"comparison", "h = higher"},
		{"matching", "<cents> = retune"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pr, pw := io.Pipe()
			t.Cleanup(func() { pw.Close() })

			out := prepare(t.TempDir(), pr, "train", tc.name)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- rootCmd.ExecuteContext(ctx) }()

			require.Eventually(t, func() bool {
				return strings.Contains(out.String(), tc.prompt)
			}, 5*time.Second, 5*time.Millisecond)
			cancel()

			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("training did not return after cancellation")
			}
		})
	}
}
