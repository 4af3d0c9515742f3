package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
)

const (
	pageWidth    = 210.0 // A4 portrait, mm
	margin       = 15.0
	contentWidth = pageWidth - 2*margin
	lineHeight   = 6.0
	chartName    = "timeline"
)

type pdfWriter struct {
	pdf *gofpdf.Fpdf
}

func (w *pdfWriter) heading(text string) {
	w.pdf.SetFont("Arial", "B", 14)
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.CellFormat(contentWidth, lineHeight+2, text, "", 1, "L", false, 0, "")
	w.pdf.Ln(1)
}

func (w *pdfWriter) field(label, value string) {
	w.pdf.SetFont("Arial", "B", 10)
	w.pdf.CellFormat(55, lineHeight, label, "", 0, "L", false, 0, "")
	w.pdf.SetFont("Arial", "", 10)
	w.pdf.CellFormat(contentWidth-55, lineHeight, value, "", 1, "L", false, 0, "")
}

func (w *pdfWriter) table(headers []string, widths []float64, rows [][]string) {
	w.pdf.SetFont("Arial", "B", 9)
	w.pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		w.pdf.CellFormat(widths[i], lineHeight, h, "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)
	w.pdf.SetFont("Arial", "", 9)
	w.pdf.SetTextColor(50, 50, 50)
	for _, row := range rows {
		for i, cell := range row {
			w.pdf.CellFormat(widths[i], lineHeight, cell, "1", 0, "R", false, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(3)
}

// WritePDF writes a one-document report of s to out. chart is an optional
// PNG, usually from TimelinePNG.
func WritePDF(out io.Writer, s Summary, chart []byte) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle("Ear training report", false)
	pdf.AddPage()
	w := &pdfWriter{pdf: pdf}

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(contentWidth, 10, "Ear training report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(contentWidth, lineHeight, s.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	w.heading("Pitch discrimination")
	w.field("Comparisons", fmt.Sprintf("%d", s.Comparisons))
	if s.Comparisons > 0 {
		w.field("Accuracy", fmt.Sprintf("%.1f%%", 100*s.Accuracy))
	}
	if s.HasThreshold {
		w.field("Mean threshold", fmt.Sprintf("%.1f cents (sd %.1f)", s.ThresholdMean, s.ThresholdSD))
	} else {
		w.field("Mean threshold", "no trained notes")
	}
	if s.HasTrend {
		w.field("Trend", s.Trend.String())
	} else {
		w.field("Trend", "not enough data")
	}
	pdf.Ln(2)

	w.heading("Pitch matching")
	w.field("Attempts", fmt.Sprintf("%d", s.Matchings))
	if s.Matchings > 0 {
		w.field("Mean error", fmt.Sprintf("%.1f cents (sd %.1f)", s.MatchingMean, s.MatchingSD))
	}
	pdf.Ln(2)

	if len(chart) > 0 {
		w.heading("Progress")
		pdf.RegisterImageReader(chartName, "PNG", bytes.NewReader(chart))
		if err := pdf.Error(); err != nil {
			return errors.Wrap(err, "report: register chart")
		}
		h := contentWidth / 2
		pdf.Image(chartName, margin, pdf.GetY(), contentWidth, h, false, "PNG", 0, "")
		pdf.SetY(pdf.GetY() + h + 4)
	}

	if len(s.WeakSpots) > 0 {
		w.heading("Weakest notes")
		rows := make([][]string, len(s.WeakSpots))
		for i, r := range s.WeakSpots {
			mean, sd := "-", "-"
			if r.Stats.IsTrained() {
				mean = fmt.Sprintf("%.1f", r.Stats.Mean)
				sd = fmt.Sprintf("%.1f", r.Stats.StdDev)
			}
			rows[i] = []string{r.Note.String(), fmt.Sprintf("%d", r.Stats.SampleCount), mean, sd,
				fmt.Sprintf("%.1f", r.Stats.CurrentDifficulty)}
		}
		w.table([]string{"Note", "Samples", "Mean (c)", "SD (c)", "Difficulty (c)"},
			[]float64{30, 30, 40, 40, 40}, rows)
	}

	if len(s.Periods) > 0 {
		w.heading("Periods")
		rows := make([][]string, len(s.Periods))
		for i, a := range s.Periods {
			rows[i] = []string{a.PeriodStart.Format("2006-01-02 15:04"), fmt.Sprintf("%d", a.TrialCount),
				fmt.Sprintf("%d", a.CorrectCount), fmt.Sprintf("%.1f", a.MeanMagnitude)}
		}
		w.table([]string{"Start", "Trials", "Correct", "Mean (c)"}, []float64{60, 40, 40, 40}, rows)
	}

	if err := pdf.Output(out); err != nil {
		return errors.Wrap(err, "report: write pdf")
	}
	return nil
}
