// Package report turns interaction records into export files: a flattened
// table (xlsx or csv) or a paginated PDF document.
package report

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

// Format enum
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV, FormatPDF:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// RecordFilename is deterministic so repeated exports are recognizable.
func RecordFilename(id domain.RecordID, f Format) string {
	return fmt.Sprintf("interaction_%s.%s", sanitize(string(id)), f)
}

func PeriodFilename(p domain.Period, f Format) string {
	return fmt.Sprintf("report_%s.%s", p.Slug(), f)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// File is a rendered export, ready to hand to an ArtifactStore.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Records     int
}

// Renderer renders records; dates are shown in Location.
type Renderer struct {
	Location *time.Location
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Location: loc}
}

// RenderRecord renders one record. now stamps the PDF metadata.
func (r *Renderer) RenderRecord(rec domain.Record, f Format, now time.Time) (File, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatXLSX:
		data, err = EncodeXLSX("Interaction", []Row{Flatten(rec, r.Location)})
	case FormatCSV:
		data, err = EncodeCSV([]Row{Flatten(rec, r.Location)})
	case FormatPDF:
		data, err = EncodePDF(LayoutRecord(rec, r.Location), now)
	default:
		err = fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", domain.ErrExportFailure, err)
	}
	return File{Name: RecordFilename(rec.ID, f), ContentType: f.ContentType(), Data: data, Records: 1}, nil
}

// RenderPeriod renders an already filtered batch. Tabular formats carry the
// full column set; the PDF carries the narrow summary table.
func (r *Renderer) RenderPeriod(records []domain.Record, p domain.Period, f Format, generatedAt time.Time) (File, error) {
	if len(records) == 0 {
		return File{}, domain.ErrEmptySelection
	}
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatXLSX, FormatCSV:
		rows := make([]Row, len(records))
		for i, rec := range records {
			rows[i] = Flatten(rec, r.Location)
		}
		if f == FormatXLSX {
			data, err = EncodeXLSX("Report_"+string(p), rows)
		} else {
			data, err = EncodeCSV(rows)
		}
	case FormatPDF:
		data, err = EncodePDF(LayoutSummary(records, p, generatedAt, r.Location), generatedAt)
	default:
		err = fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", domain.ErrExportFailure, err)
	}
	return File{Name: PeriodFilename(p, f), ContentType: f.ContentType(), Data: data, Records: len(records)}, nil
}
