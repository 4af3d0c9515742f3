// Package report renders training progress as a PNG chart and a PDF summary.
package report

import (
	"bytes"
	"image/color"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("report: no training data")

// Default chart size in points.
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

var (
	bucketColor  = color.RGBA{B: 200, A: 255}
	rollingColor = color.RGBA{R: 220, G: 90, A: 255}
	bandColor    = color.Gray{Y: 150}
)

// TimelinePNG draws the per-period mean threshold as points, the rolling
// mean as a line and the rolling mean ± one standard deviation as dashed
// lines. Non-positive sizes fall back to DefaultWidth × DefaultHeight.
func TimelinePNG(tl *ear.Timeline, width, height float64) ([]byte, error) {
	buckets := tl.Aggregated()
	if len(buckets) == 0 {
		return nil, ErrNoData
	}
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}

	means := tl.RollingMean()
	sds := tl.RollingStdDev()

	pts := make(plotter.XYs, len(buckets))
	for i, b := range buckets {
		pts[i] = plotter.XY{X: float64(b.PeriodStart.Unix()), Y: b.MeanMagnitude}
	}
	rolling := make(plotter.XYs, len(means))
	upper := make(plotter.XYs, len(means))
	lower := make(plotter.XYs, len(means))
	for i, m := range means {
		x := float64(m.Time.Unix())
		rolling[i] = plotter.XY{X: x, Y: m.Value}
		upper[i] = plotter.XY{X: x, Y: m.Value + sds[i].Value}
		lower[i] = plotter.XY{X: x, Y: max(0, m.Value-sds[i].Value)}
	}

	p := plot.New()
	p.Title.Text = "Pitch discrimination threshold"
	p.X.Label.Text = "Period"
	p.Y.Label.Text = "Cents"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "report: bucket points")
	}
	scatter.GlyphStyle.Color = bucketColor
	scatter.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(scatter)
	p.Legend.Add("period mean", scatter)

	line, err := plotter.NewLine(rolling)
	if err != nil {
		return nil, errors.Wrap(err, "report: rolling mean")
	}
	line.Color = rollingColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("rolling mean", line)

	for _, band := range []plotter.XYs{upper, lower} {
		l, err := plotter.NewLine(band)
		if err != nil {
			return nil, errors.Wrap(err, "report: deviation band")
		}
		l.Color = bandColor
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(l)
	}
	p.Legend.Top = true

	w, err := p.WriterTo(vg.Points(width), vg.Points(height), "png")
	if err != nil {
		return nil, errors.Wrap(err, "report: plot writer")
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "report: render png")
	}
	return buf.Bytes(), nil
}
