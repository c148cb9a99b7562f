package interactions

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
)

// Export describes a file written to the export target.
type Export struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Format   string `json:"format"`
	Records  int    `json:"records"`
	Bytes    int    `json:"bytes"`
}

// RenderRecord produces the export file of one record without storing it.
func (s *Service) RenderRecord(id domain.RecordID, f report.Format) (report.File, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return report.File{}, err
	}
	file, err := s.renderer.RenderRecord(rec, f, s.clock.Now())
	if err != nil {
		s.log.Error("record export failed", "id", id, "format", f, "err", err)
		return report.File{}, err
	}
	return file, nil
}

// RenderPeriod produces the report of period without storing it. An empty
// period yields ErrEmptySelection.
func (s *Service) RenderPeriod(p domain.Period, f report.Format) (report.File, error) {
	now := s.clock.Now()
	records := s.store.Snapshot()
	records = domain.FilterByPeriod(records, p, now)
	domain.SortNewestFirst(records)

	file, err := s.renderer.RenderPeriod(records, p, f, now)
	if err != nil {
		if errors.Is(err, domain.ErrEmptySelection) {
			s.log.Info("nothing to export", "period", p, "format", f)
			return report.File{}, err
		}
		s.log.Error("period export failed", "period", p, "format", f, "err", err)
		return report.File{}, err
	}
	return file, nil
}

// ExportRecord renders one record and writes it to the export target.
func (s *Service) ExportRecord(ctx context.Context, id domain.RecordID, f report.Format) (Export, error) {
	file, err := s.RenderRecord(id, f)
	if err != nil {
		return Export{}, err
	}
	return s.put(ctx, file, f)
}

// ExportPeriod renders the report of period and writes it to the export target.
func (s *Service) ExportPeriod(ctx context.Context, p domain.Period, f report.Format) (Export, error) {
	file, err := s.RenderPeriod(p, f)
	if err != nil {
		return Export{}, err
	}
	return s.put(ctx, file, f)
}

func (s *Service) put(ctx context.Context, file report.File, f report.Format) (Export, error) {
	if s.target == nil {
		return Export{}, fmt.Errorf("%w: no export target configured", domain.ErrExportFailure)
	}
	loc, err := s.target.Put(ctx, file.Name, file.ContentType, file.Data)
	if err != nil {
		s.log.Error("writing export failed", "name", file.Name, "err", err)
		return Export{}, fmt.Errorf("%w: %v", domain.ErrExportFailure, err)
	}
	s.log.Info("export written", "name", file.Name, "location", loc, "records", file.Records)
	return Export{Name: file.Name, Location: loc, Format: string(f), Records: file.Records, Bytes: len(file.Data)}, nil
}
