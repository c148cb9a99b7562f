package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// EncodePDF draws a laid-out document. Pagination is already decided by the
// layout, so the encoder's own page breaking is disabled.
func EncodePDF(doc Document, createdAt time.Time) ([]byte, error) {
	l := doc.Layout
	pdf := fpdf.New(l.Orientation, "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreationDate(createdAt)
	pdf.SetModificationDate(createdAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	contentWidth := l.PageWidth - 2*l.Margin
	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, ln := range page.Lines {
			switch ln.Kind {
			case KindTitle:
				pdf.SetFont(fontFamily, "B", 16)
				pdf.SetTextColor(0, 0, 0)
				pdf.Text(ln.X, ln.Y, tr(ln.Text))
			case KindMeta:
				pdf.SetFont(fontFamily, "", textSize)
				pdf.SetTextColor(0, 0, 0)
				pdf.Text(ln.X, ln.Y, tr(ln.Text))
			case KindRule:
				pdf.SetDrawColor(200, 200, 200)
				pdf.Line(ln.X, ln.Y, ln.X+contentWidth, ln.Y)
			case KindHeading:
				pdf.SetFillColor(245, 247, 250)
				pdf.Rect(l.Margin, ln.Y-5, contentWidth, 7, "F")
				pdf.SetFont(fontFamily, "B", 11)
				pdf.SetTextColor(30, 41, 59)
				pdf.Text(ln.X, ln.Y, tr(ln.Text))
			case KindText:
				pdf.SetFont(fontFamily, "", textSize)
				pdf.SetTextColor(51, 65, 85)
				pdf.Text(ln.X, ln.Y, tr(ln.Text))
			case KindTableHeader, KindTableRow:
				drawRow(pdf, tr, doc.ColumnWidths, ln, l.RowHeight)
			}
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	return buf.Bytes(), nil
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, ln Line, h float64) {
	if ln.Kind == KindTableHeader {
		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetFillColor(16, 185, 129)
		pdf.SetTextColor(255, 255, 255)
	} else {
		pdf.SetFont(fontFamily, "", 9)
		pdf.SetTextColor(30, 41, 59)
	}
	pdf.SetDrawColor(200, 200, 200)
	x := ln.X
	for i, cell := range ln.Cells {
		w := 30.0
		if i < len(widths) {
			w = widths[i]
		}
		txt := fitCell(tr(cell), w-2, pdf.GetStringWidth)
		pdf.SetXY(x, ln.Y)
		pdf.CellFormat(w, h, txt, "1", 0, "L", ln.Kind == KindTableHeader, 0, "")
		x += w
	}
}

// fitCell keeps a cell on one line, cutting txt and marking the cut with an
// ellipsis when it is wider than w. txt is in the single-byte core font
// encoding, so it is cut byte by byte.
func fitCell(txt string, w float64, measure Measure) string {
	if measure(txt) <= w {
		return txt
	}
	for len(txt) > 0 && measure(txt+ellipsis) > w {
		txt = txt[:len(txt)-1]
	}
	return strings.TrimRight(txt, " ") + ellipsis
}
