package dataprocessing

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "crudetrack/internal/errors"
	"crudetrack/pkg/contracts/domain"
)

// Summarizer aggregates reported movements per grade.
type Summarizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// GradeSummary is the per-grade aggregate of a report run.
type GradeSummary struct {
	Grade         string          `json:"grade"`
	Movements     int             `json:"movements"`
	KnownQuantity int             `json:"known_quantity"`
	TotalBarrels  decimal.Decimal `json:"total_barrels"`
	FirstLoadDate string          `json:"first_load_date,omitempty"`
	LastLoadDate  string          `json:"last_load_date,omitempty"`
	Destinations  []string        `json:"destinations"`
}

// NewSummarizer creates a grade summarizer
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
		now:    time.Now,
	}
}

// Summarize groups movements by grade. Movements are expected in report
// order, so the first and last load dates of a grade are those of its first
// and last dated movement. Summaries are sorted by grade.
func (s *Summarizer) Summarize(ctx context.Context, movements []domain.Movement) []GradeSummary {
	byGrade := make(map[string]*GradeSummary)
	seen := make(map[string]map[string]struct{})

	for _, m := range movements {
		grade, ok := m.Grade.Get()
		if !ok {
			continue
		}
		summary, exists := byGrade[grade]
		if !exists {
			summary = &GradeSummary{Grade: grade, TotalBarrels: decimal.Zero, Destinations: []string{}}
			byGrade[grade] = summary
			seen[grade] = make(map[string]struct{})
		}

		summary.Movements++
		if q, ok := m.Quantity.Get(); ok {
			summary.KnownQuantity++
			summary.TotalBarrels = summary.TotalBarrels.Add(q)
		}
		if date, ok := m.LoadDate.Get(); ok {
			if summary.FirstLoadDate == "" {
				summary.FirstLoadDate = date
			}
			summary.LastLoadDate = date
		}
		if dest, ok := m.Destination.Get(); ok {
			if _, dup := seen[grade][dest]; !dup {
				seen[grade][dest] = struct{}{}
				summary.Destinations = append(summary.Destinations, dest)
			}
		}
	}

	summaries := make([]GradeSummary, 0, len(byGrade))
	for _, summary := range byGrade {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Grade < summaries[j].Grade
	})

	for _, summary := range summaries {
		s.logger.InfoContext(ctx, "Grade summary",
			slog.String("grade", summary.Grade),
			slog.Int("movements", summary.Movements),
			slog.String("total_barrels", summary.TotalBarrels.String()))
	}
	return summaries
}

// WriteJSON writes the summaries with run metadata to path
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summaries []GradeSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewReportError("create summary directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewReportError("create summary file", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	payload := map[string]any{
		"grades":       summaries,
		"count":        len(summaries),
		"generated_at": s.now().UTC().Format(time.RFC3339),
		"format":       "grade_summary_v1",
	}
	if err := encoder.Encode(payload); err != nil {
		return apperrors.NewReportError("encode grade summary", err)
	}

	s.logger.InfoContext(ctx, "Grade summary written",
		slog.String("path", path),
		slog.Int("grades", len(summaries)))
	return nil
}
