package exporter

import (
	"context"
	"log/slog"
	"sort"

	apperrors "crudetrack/internal/errors"
	"crudetrack/pkg/contracts/domain"
)

// GroupByGrade partitions movements by grade, keeping their relative order.
// Grades are returned in lexicographic order; movements without a grade
// are skipped.
func GroupByGrade(movements []domain.Movement) ([]string, map[string][]domain.Movement) {
	groups := make(map[string][]domain.Movement)
	for _, m := range movements {
		grade, ok := m.Grade.Get()
		if !ok {
			continue
		}
		groups[grade] = append(groups[grade], m)
	}

	grades := make([]string, 0, len(groups))
	for grade := range groups {
		grades = append(grades, grade)
	}
	sort.Strings(grades)
	return grades, groups
}

// MovementExporter writes reported movements to a flat CSV file
type MovementExporter struct {
	csvWriter *CSVWriter
	logger    *slog.Logger
}

// NewMovementExporter creates a CSV exporter for report rows
func NewMovementExporter(logger *slog.Logger) *MovementExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MovementExporter{
		csvWriter: NewCSVWriter(logger),
		logger:    logger,
	}
}

// MovementHeaders are the CSV columns: the report layout with the STS
// column named, followed by the grade.
func MovementHeaders() []string {
	headers := append([]string(nil), ReportHeaders...)
	return append(headers, "STS Event Type", "Grade")
}

// ExportCSV writes movements, in the given order, to path
func (e *MovementExporter) ExportCSV(ctx context.Context, path string, movements []domain.Movement) error {
	stream, err := e.csvWriter.CreateStreamWriter(path, MovementHeaders(), true)
	if err != nil {
		return apperrors.NewReportError("create movements csv", err)
	}

	for _, m := range movements {
		record := append(RenderRecord(m), m.Grade.String())
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return apperrors.NewReportError("write movements csv", err)
		}
	}
	if err := stream.Close(); err != nil {
		return apperrors.NewReportError("close movements csv", err)
	}

	e.logger.InfoContext(ctx, "Movements exported",
		slog.String("path", path),
		slog.Int("rows", len(movements)))
	return nil
}
