package report

import "github.com/go-pdf/fpdf"

// textSize is the point size of meta and body lines.
const textSize = 10

// Measure reports the drawn width of a string in millimetres.
type Measure func(s string) float64

// FontMeasure measures text as EncodePDF draws it: Helvetica in style at
// size points, after translation to the core font encoding.
func FontMeasure(style string, size float64) Measure {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont(fontFamily, style, size)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) float64 { return pdf.GetStringWidth(tr(s)) }
}
