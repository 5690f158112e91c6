package export

import (
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/snarg/meetscribe/internal/jobs"
)

// Page layout in points, measured from the top-left corner.
const (
	pdfTop          = 40.0
	pdfLeft         = 40.0
	pdfRight        = 40.0
	pdfIndent       = 20.0
	pdfBottomMargin = 60.0
	pdfLineHeight   = 12.0
	pdfBodySize     = 10.0
)

type pdfWriter struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	y        float64
	height   float64
	maxWidth float64
}

// RenderPDF writes a Letter-size report with the same sections as the
// markdown export. Body text is word-wrapped to the page width and flows
// onto new pages as needed.
func RenderPDF(w io.Writer, r jobs.MeetingResult) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Meeting Summary", true)
	pdf.AddPage()

	width, height := pdf.GetPageSize()
	pw := &pdfWriter{
		pdf:      pdf,
		tr:       pdf.UnicodeTranslatorFromDescriptor(""),
		y:        pdfTop,
		height:   height,
		maxWidth: width - pdfLeft - pdfRight,
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(pdfLeft, pw.y, "Meeting Summary")
	pw.y += 30

	pw.heading("Executive Summary:")
	pw.paragraph(r.Summary)

	pw.y += 10
	pw.heading("Key Discussion Points:")
	for _, pt := range r.KeyPoints {
		pw.paragraph("- " + pt)
	}

	pw.y += 10
	pw.heading("Action Items:")
	for _, ai := range r.ActionItems {
		pw.paragraph("- " + ai)
	}

	pw.y += 10
	pw.heading("Full Transcript:")
	for _, para := range strings.Split(r.Transcript, "\n") {
		pw.paragraph(para)
	}

	return pdf.Output(w)
}

func (pw *pdfWriter) heading(s string) {
	pw.pdf.SetFont("Helvetica", "B", 12)
	pw.pdf.Text(pdfLeft, pw.y, s)
	pw.y += 18
	pw.pdf.SetFont("Helvetica", "", pdfBodySize)
}

func (pw *pdfWriter) paragraph(text string) {
	for _, line := range wrapText(pw.tr(text), pw.pdf.GetStringWidth, pw.maxWidth) {
		pw.pdf.Text(pdfLeft+pdfIndent, pw.y, line)
		pw.y += pdfLineHeight
		if pw.y > pw.height-pdfBottomMargin {
			pw.pdf.AddPage()
			pw.y = pdfTop
			pw.pdf.SetFont("Helvetica", "", pdfBodySize)
		}
	}
}

// wrapText greedily packs words into lines no wider than maxWidth. A single
// word wider than maxWidth gets a line of its own.
func wrapText(text string, width func(string) float64, maxWidth float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if width(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
