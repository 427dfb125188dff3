package exporter

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "crudetrack/internal/errors"
	"crudetrack/pkg/contracts/domain"
)

// GradeReport writes one sheet per grade
type GradeReport struct {
	writer SheetWriter
	logger *slog.Logger
}

// NewGradeReport creates a report over writer
func NewGradeReport(writer SheetWriter, logger *slog.Logger) *GradeReport {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeReport{
		writer: writer,
		logger: logger.With(slog.String("component", "grade_report")),
	}
}

// Write renders movements, in their given order, into per-grade sheets and
// closes the writer. On failure the writer is discarded so no partial
// workbook is saved.
func (r *GradeReport) Write(ctx context.Context, movements []domain.Movement) error {
	grades, groups := GroupByGrade(movements)

	for _, grade := range grades {
		if err := ctx.Err(); err != nil {
			r.discard(ctx)
			return apperrors.NewReportError("report cancelled", err)
		}
		if err := r.writeSheet(ctx, grade, groups[grade]); err != nil {
			r.discard(ctx)
			return apperrors.NewReportError(fmt.Sprintf("write sheet %q", grade), err)
		}
	}

	if err := r.writer.Close(); err != nil {
		return apperrors.NewReportError("close workbook", err)
	}

	r.logger.InfoContext(ctx, "Grade report written",
		slog.Int("sheets", len(grades)),
		slog.Int("rows", len(movements)))
	return nil
}

// discard releases the writer after a failure. The write error is what the
// caller reports, so a discard error is only logged.
func (r *GradeReport) discard(ctx context.Context) {
	if err := r.writer.Discard(); err != nil {
		r.logger.WarnContext(ctx, "Failed to discard workbook", slog.String("error", err.Error()))
	}
}

func (r *GradeReport) writeSheet(ctx context.Context, grade string, movements []domain.Movement) error {
	if err := r.writer.AddSheet(grade); err != nil {
		return err
	}
	if err := r.writer.WriteHeader(grade, ReportHeaders); err != nil {
		return err
	}

	widths := newColumnWidths()
	for i, m := range movements {
		r.logger.InfoContext(ctx, "STS event type",
			slog.String("grade", grade),
			slog.Int("row", i+1),
			slog.String("sts_event_type", m.STSEventType.String()))

		cells := RenderRow(m)
		if err := r.writer.WriteRow(grade, i+1, cells); err != nil {
			return err
		}
		widths.observe(cells)
	}

	for col, width := range widths {
		if err := r.writer.SetColumnWidth(grade, col, width); err != nil {
			return err
		}
	}
	return nil
}
