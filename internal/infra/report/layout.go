package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

// ReplyBudget is the number of reply characters kept in a document before
// the ellipsis.
const ReplyBudget = 300

const ellipsis = "..."

// Kind tells the encoder how to draw a line.
type Kind int

const (
	KindTitle Kind = iota
	KindMeta
	KindRule
	KindHeading
	KindText
	KindTableHeader
	KindTableRow
)

// Line is one positioned element on a page. Y is the text baseline, or the
// top edge for table rows. Coordinates are in millimetres.
type Line struct {
	Kind  Kind
	X     float64
	Y     float64
	Text  string
	Cells []string
}

type Page struct {
	Lines []Line
}

// Document is the laid-out, encoder-independent form of a paginated report.
type Document struct {
	Layout       Layout
	Title        string
	ColumnWidths []float64
	Pages        []Page
}

// Layout holds page geometry in millimetres.
type Layout struct {
	Orientation  string
	PageWidth    float64
	PageHeight   float64
	Margin       float64
	Top          float64
	SectionLimit float64
	LineLimit    float64
	LineHeight   float64
	RowHeight    float64
}

// Portrait is the single-record layout (A4).
var Portrait = Layout{
	Orientation:  "P",
	PageWidth:    210,
	PageHeight:   297,
	Margin:       10,
	Top:          15,
	SectionLimit: 270,
	LineLimit:    280,
	LineHeight:   5,
	RowHeight:    8,
}

// Landscape is the batch summary layout (A4 landscape).
var Landscape = Layout{
	Orientation:  "L",
	PageWidth:    297,
	PageHeight:   210,
	Margin:       14,
	Top:          15,
	SectionLimit: 180,
	LineLimit:    190,
	LineHeight:   5,
	RowHeight:    8,
}

// SummaryColumns is the narrow batch table layout.
var SummaryColumns = []string{"ID", "Date", "Theme", "Urgency", "Risk", "Status"}

var summaryWidths = []float64{25, 35, 99, 30, 45, 35}

const shortIDLen = 6

// cursor tracks the running vertical position while pages are filled.
type cursor struct {
	l     Layout
	y     float64
	pages []Page
}

func newCursor(l Layout) *cursor {
	c := &cursor{l: l}
	c.newPage()
	return c
}

func (c *cursor) newPage() {
	c.pages = append(c.pages, Page{})
	c.y = c.l.Top
}

func (c *cursor) put(line Line) {
	p := &c.pages[len(c.pages)-1]
	p.Lines = append(p.Lines, line)
}

// fit starts a new page when the cursor has passed limit.
func (c *cursor) fit(limit float64) {
	if c.y > limit {
		c.newPage()
	}
}

func (c *cursor) text(kind Kind, x float64, s string, advance float64) {
	c.fit(c.l.LineLimit)
	c.put(Line{Kind: kind, X: x, Y: c.y, Text: s})
	c.y += advance
}

// block puts wrapped lines one line height apart and advances by after
// past the last one.
func (c *cursor) block(kind Kind, x float64, lines []string, after float64) {
	for i, s := range lines {
		advance := c.l.LineHeight
		if i == len(lines)-1 {
			advance = after
		}
		c.text(kind, x, s, advance)
	}
}

type field struct {
	label string
	value string
}

// LayoutRecord lays out the single-record document: header, original input,
// then one block per pipeline stage.
func LayoutRecord(r domain.Record, loc *time.Location) Document {
	l := Portrait
	c := newCursor(l)
	a := r.Analysis

	measure := FontMeasure("", textSize)
	// lines end at the right margin
	textWidth := l.PageWidth - 2*l.Margin
	fieldX := l.Margin + 5
	fieldWidth := l.PageWidth - l.Margin - fieldX

	c.text(KindTitle, l.Margin, "Individual Interaction Report", 10)
	meta := fmt.Sprintf("ID: %s | Date: %s", orNA(string(r.ID)), formatTime(r.Timestamp, loc, dateTimeLayout))
	c.block(KindMeta, l.Margin, Wrap(meta, textWidth, measure), 10)
	c.fit(l.LineLimit)
	c.put(Line{Kind: KindRule, X: l.Margin, Y: c.y})
	c.y += 10

	c.text(KindHeading, l.Margin, "Original Input:", 7)
	input := r.InputText
	if strings.TrimSpace(input) == "" {
		input = "Empty text"
	}
	c.block(KindText, l.Margin, Wrap(input, textWidth, measure), l.LineHeight)
	c.y += 10

	silent := "Not detected"
	if a.Analyst.SilentRiskDetected {
		silent = "DETECTED"
	}
	strategy := []field{
		{"Priority", fmt.Sprintf("%d", a.Strategist.PriorityLevel)},
		{"Escalation", yesNo(a.Strategist.EscalationRequired)},
	}
	if a.Strategist.EscalationRequired {
		strategy = append(strategy, field{"Escalation Target", a.EscalationTargetOr(NotAvailable)})
	}
	strategy = append(strategy, field{"Plan", orNA(a.Strategist.ProactiveMitigationPlan)})

	sections := []struct {
		title  string
		fields []field
	}{
		{"1. Triage & Classification", []field{
			{"Type", orNA(a.Triage.Type)},
			{"Theme", orNA(a.Triage.Theme)},
			{"Urgency", orNA(string(a.Triage.Urgency))},
			{"SLA", orNA(a.Triage.SLARecommendation)},
			{"Area", orNA(a.Triage.ResponsibleArea)},
		}},
		{"2. Risk Analysis", []field{
			{"Score", fmt.Sprintf("%.0f%%", a.Analyst.RiskScore*100)},
			{"Silent Risk", silent},
			{"Prediction", orNA(a.Analyst.Prediction)},
		}},
		{"3. Strategy", strategy},
		{"4. Suggested Reply", []field{
			{"Text", orNA(Truncate(a.Communicator.ReplyText, ReplyBudget))},
		}},
	}
	for _, s := range sections {
		c.fit(l.SectionLimit)
		c.put(Line{Kind: KindHeading, X: l.Margin + 2, Y: c.y, Text: s.title})
		c.y += 8
		for _, f := range s.fields {
			c.block(KindText, fieldX, Wrap(f.label+": "+f.value, fieldWidth, measure), l.LineHeight)
			c.y++
		}
		c.y += 5
	}

	return Document{Layout: l, Title: "Interaction " + string(r.ID), Pages: c.pages}
}

// LayoutSummary lays out the batch document: one header and one table row per
// record. The table header repeats on every page.
func LayoutSummary(records []domain.Record, period domain.Period, generatedAt time.Time, loc *time.Location) Document {
	l := Landscape
	c := newCursor(l)
	c.y = 22

	title := fmt.Sprintf("Consolidated Report - %s", period)
	c.text(KindTitle, l.Margin, title, 8)
	c.text(KindMeta, l.Margin, fmt.Sprintf("Generated at: %s | Total records: %d", formatTime(generatedAt, loc, dateTimeLayout), len(records)), 10)

	header := func() {
		c.put(Line{Kind: KindTableHeader, X: l.Margin, Y: c.y, Cells: SummaryColumns})
		c.y += l.RowHeight
	}
	header()
	for _, r := range records {
		if c.y+l.RowHeight > l.LineLimit {
			c.newPage()
			header()
		}
		c.put(Line{Kind: KindTableRow, X: l.Margin, Y: c.y, Cells: SummaryCells(r, loc)})
		c.y += l.RowHeight
	}

	return Document{Layout: l, Title: title, ColumnWidths: summaryWidths, Pages: c.pages}
}

// SummaryCells builds one batch-table row. A record that cannot be rendered
// yields placeholder cells instead of aborting the batch.
func SummaryCells(r domain.Record, loc *time.Location) (cells []string) {
	defer func() {
		if rec := recover(); rec != nil {
			cells = []string{ShortID(r.ID), NotAvailable, NotAvailable, NotAvailable, NotAvailable, NotAvailable}
		}
	}()
	a := r.Analysis
	risk := "Normal"
	if a.Analyst.SilentRiskDetected {
		risk = "HIGH (Silent)"
	}
	status := "Resolved"
	if a.Strategist.EscalationRequired {
		status = "ESCALATED"
	}
	return []string{
		ShortID(r.ID),
		formatTime(r.Timestamp, loc, dateLayout),
		orNA(a.Triage.Theme),
		orNA(string(a.Triage.Urgency)),
		risk,
		status,
	}
}

// ShortID keeps the last six characters of id.
func ShortID(id domain.RecordID) string {
	s := []rune(string(id))
	if len(s) <= shortIDLen {
		return orNA(string(id))
	}
	return string(s[len(s)-shortIDLen:])
}

// Truncate keeps the first budget characters of s and appends an ellipsis
// when s is longer.
func Truncate(s string, budget int) string {
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	return string([]rune(s)[:budget]) + ellipsis
}

// Wrap breaks s into lines no wider than width as reported by measure. Lines
// break after whitespace where possible and inside a word only when the word
// alone is too wide. Newlines end a line. Whitespace is kept, so the lines of
// one paragraph concatenate back to it.
func Wrap(s string, width float64, measure Measure) []string {
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		line := ""
		for _, tok := range tokens(para) {
			if measure(line+tok) <= width {
				line += tok
				continue
			}
			if line != "" && !isSpace(tok) {
				out = append(out, line)
				line = ""
				if measure(tok) <= width {
					line = tok
					continue
				}
			}
			for _, r := range tok {
				if line != "" && measure(line+string(r)) > width {
					out = append(out, line)
					line = ""
				}
				line += string(r)
			}
		}
		out = append(out, line)
	}
	return out
}

// tokens splits s into alternating runs of whitespace and non-whitespace.
func tokens(s string) []string {
	var (
		out   []string
		b     strings.Builder
		space bool
	)
	for i, r := range s {
		if i > 0 && unicode.IsSpace(r) != space {
			out = append(out, b.String())
			b.Reset()
		}
		space = unicode.IsSpace(r)
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func isSpace(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsSpace(r)
}
