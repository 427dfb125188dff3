package dataprocessing

import (
	"context"
	"log/slog"

	apperrors "crudetrack/internal/errors"
	"crudetrack/pkg/contracts/domain"
)

const (
	columnLoadEnd     = "load end"
	columnUnloadStart = "unload start"
)

// Result is the outcome of a transform run
type Result struct {
	Movements []domain.Movement
	Fetched   int
	Crude     int
}

// Transformer turns a movements table into the rows of the grade report
type Transformer struct {
	category string
	grades   domain.GradeSet
	logger   *slog.Logger
}

// NewTransformer creates a transformer that keeps movements of the given
// product group whose grade is in grades.
func NewTransformer(category string, grades []string, logger *slog.Logger) *Transformer {
	if category == "" {
		category = domain.ProductGroupCrude
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{
		category: category,
		grades:   domain.NewGradeSet(grades),
		logger:   logger.With(slog.String("component", "transformer")),
	}
}

// Transform decodes, sorts, normalises timestamps and filters the table.
// Any malformed timestamp in the table aborts the run, including rows that
// the filters would later drop.
func (t *Transformer) Transform(ctx context.Context, table *domain.Table) (*Result, error) {
	movements, err := DecodeTable(table)
	if err != nil {
		return nil, err
	}

	for i := range movements {
		if err := normaliseTimestamps(&movements[i]); err != nil {
			return nil, err
		}
	}
	SortByLoadEnd(movements)

	crude := t.FilterCategory(movements)
	reported := t.FilterGrades(crude)

	t.logger.InfoContext(ctx, "Movements transformed",
		slog.Int("fetched", len(movements)),
		slog.Int("crude", len(crude)),
		slog.Int("reported", len(reported)))
	t.logger.DebugContext(ctx, "Grade allow-list applied",
		slog.String("category", t.category),
		slog.Any("grades", t.grades.Labels()))

	return &Result{
		Movements: reported,
		Fetched:   len(movements),
		Crude:     len(crude),
	}, nil
}

// FilterCategory keeps movements whose product group equals the configured category
func (t *Transformer) FilterCategory(movements []domain.Movement) []domain.Movement {
	out := make([]domain.Movement, 0, len(movements))
	for _, m := range movements {
		if group, ok := m.ProductGroup.Get(); ok && group == t.category {
			out = append(out, m)
		}
	}
	return out
}

// FilterGrades keeps movements whose grade is in the allow-list
func (t *Transformer) FilterGrades(movements []domain.Movement) []domain.Movement {
	out := make([]domain.Movement, 0, len(movements))
	for _, m := range movements {
		if grade, ok := m.Grade.Get(); ok && t.grades.Contains(grade) {
			out = append(out, m)
		}
	}
	return out
}

func normaliseTimestamps(m *domain.Movement) error {
	if raw, ok := m.LoadEnd.Get(); ok {
		at, err := ParseTimestamp(raw)
		if err != nil {
			return apperrors.NewTimestampError(columnLoadEnd, raw, err)
		}
		m.LoadEndAt = domain.Some(at)
		m.LoadDate = domain.Some(at.Format(ReportDateLayout))
	}
	if raw, ok := m.UnloadStart.Get(); ok {
		date, err := FormatDate(raw)
		if err != nil {
			return apperrors.NewTimestampError(columnUnloadStart, raw, err)
		}
		m.UnloadDate = domain.Some(date)
	}
	return nil
}
