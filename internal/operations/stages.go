package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crudetrack/internal/dataprocessing"
	apperrors "crudetrack/internal/errors"
	"crudetrack/internal/exporter"
	"crudetrack/internal/infrastructure"
	"crudetrack/internal/store"
	"crudetrack/internal/vortexa"
	"crudetrack/pkg/contracts/domain"
)

// Step IDs and names
const (
	StageIDFetch     = "fetch"
	StageIDReplay    = "replay"
	StageIDSnapshot  = "snapshot"
	StageIDTransform = "transform"
	StageIDReport    = "report"
	StageIDExportCSV = "export_csv"
	StageIDSummary   = "summary"

	StageNameFetch     = "Fetch Movements"
	StageNameReplay    = "Replay Snapshot"
	StageNameSnapshot  = "Save Snapshot"
	StageNameTransform = "Transform Movements"
	StageNameReport    = "Write Grade Report"
	StageNameExportCSV = "Export Movements CSV"
	StageNameSummary   = "Write Grade Summary"
)

// LatestSnapshot selects the newest stored snapshot for replay
const LatestSnapshot = "latest"

// MovementSource performs one filtered movements query
type MovementSource interface {
	Search(ctx context.Context, q vortexa.Query) (*domain.Table, error)
}

// FetchStage queries the movements source for the report window
type FetchStage struct {
	BaseStage
	source MovementSource
	query  vortexa.Query
	logger *slog.Logger
}

// NewFetchStage creates the fetch step
func NewFetchStage(source MovementSource, query vortexa.Query, logger *slog.Logger) *FetchStage {
	return &FetchStage{
		BaseStage: NewBaseStage(StageIDFetch, StageNameFetch),
		source:    source,
		query:     query,
		logger:    stageLogger(logger, StageIDFetch),
	}
}

// Validate checks the source and the query window
func (s *FetchStage) Validate(state *OperationState) error {
	if s.source == nil {
		return apperrors.NewValidationError(s.ID(), "no movements source configured")
	}
	if !s.query.TimeMin.Before(s.query.TimeMax) {
		return apperrors.NewValidationError(s.ID(), "query window is empty")
	}
	return nil
}

// Execute runs the query and stores the table in the operation context
func (s *FetchStage) Execute(ctx context.Context, state *OperationState) error {
	table, err := s.source.Search(ctx, s.query)
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyTable, table)
	s.logger.InfoContext(ctx, "Movements fetched",
		slog.Int("rows", table.Len()),
		slog.String("from", s.query.TimeMin.Format(time.DateOnly)),
		slog.String("to", s.query.TimeMax.Format(time.DateOnly)))
	return nil
}

// ReplayStage loads a stored table instead of querying the API
type ReplayStage struct {
	BaseStage
	store      store.Store
	snapshotID string
	logger     *slog.Logger
}

// NewReplayStage creates the replay step. An empty ID or LatestSnapshot
// replays the newest snapshot.
func NewReplayStage(st store.Store, snapshotID string, logger *slog.Logger) *ReplayStage {
	return &ReplayStage{
		BaseStage:  NewBaseStage(StageIDReplay, StageNameReplay),
		store:      st,
		snapshotID: snapshotID,
		logger:     stageLogger(logger, StageIDReplay),
	}
}

// Validate checks that a store is configured
func (s *ReplayStage) Validate(state *OperationState) error {
	if s.store == nil {
		return apperrors.NewValidationError(s.ID(), "replay needs a snapshot database")
	}
	return nil
}

// Execute loads the snapshot table into the operation context
func (s *ReplayStage) Execute(ctx context.Context, state *OperationState) error {
	var (
		snapshot *store.Snapshot
		err      error
	)
	if s.snapshotID == "" || s.snapshotID == LatestSnapshot {
		snapshot, err = s.store.LatestSnapshot(ctx)
	} else {
		snapshot, err = s.store.GetSnapshot(ctx, s.snapshotID)
	}
	if errors.Is(err, store.ErrNoSnapshot) {
		return apperrors.NewValidationError(s.ID(), fmt.Sprintf("no snapshot %q to replay", s.snapshotID))
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	state.SetContext(ContextKeyTable, snapshot.Table)
	state.SetContext(ContextKeySnapshotID, snapshot.ID)
	state.SetContext(ContextKeyReplayed, true)
	s.logger.InfoContext(ctx, "Snapshot replayed",
		slog.String("snapshot_id", snapshot.ID),
		slog.Time("created_at", snapshot.CreatedAt),
		slog.Int("rows", snapshot.Table.Len()))
	return nil
}

// SnapshotStage archives the fetched table
type SnapshotStage struct {
	BaseStage
	store    store.Store
	from, to time.Time
	logger   *slog.Logger
}

// NewSnapshotStage creates the snapshot step. A nil store skips it.
func NewSnapshotStage(st store.Store, from, to time.Time, logger *slog.Logger) *SnapshotStage {
	return &SnapshotStage{
		BaseStage: NewBaseStage(StageIDSnapshot, StageNameSnapshot),
		store:     st,
		from:      from,
		to:        to,
		logger:    stageLogger(logger, StageIDSnapshot),
	}
}

// Validate requires a table
func (s *SnapshotStage) Validate(state *OperationState) error {
	return requireTable(s.ID(), state)
}

// Execute saves the table unless it was itself replayed
func (s *SnapshotStage) Execute(ctx context.Context, state *OperationState) error {
	if s.store == nil {
		return Skip("no snapshot database configured")
	}
	if state.Replayed() {
		return Skip("table was replayed from a snapshot")
	}

	table, _ := state.Table()
	snapshot := &store.Snapshot{From: s.from, To: s.to, Table: table}
	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	state.SetContext(ContextKeySnapshotID, snapshot.ID)
	s.logger.InfoContext(ctx, "Snapshot saved",
		slog.String("snapshot_id", snapshot.ID),
		slog.Int("rows", table.Len()))
	return nil
}

// TransformStage turns the table into sorted, filtered report movements
type TransformStage struct {
	BaseStage
	transformer *dataprocessing.Transformer
	metrics     *infrastructure.PipelineMetrics
}

// NewTransformStage creates the transform step. metrics may be nil.
func NewTransformStage(transformer *dataprocessing.Transformer, metrics *infrastructure.PipelineMetrics) *TransformStage {
	return &TransformStage{
		BaseStage:   NewBaseStage(StageIDTransform, StageNameTransform),
		transformer: transformer,
		metrics:     metrics,
	}
}

// Validate requires a table
func (s *TransformStage) Validate(state *OperationState) error {
	return requireTable(s.ID(), state)
}

// Execute runs the transformer and stores its result
func (s *TransformStage) Execute(ctx context.Context, state *OperationState) error {
	table, _ := state.Table()
	result, err := s.transformer.Transform(ctx, table)
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyResult, result)
	infrastructure.AddSpanEvent(ctx, "movements.transformed", map[string]interface{}{
		"fetched":  result.Fetched,
		"crude":    result.Crude,
		"reported": len(result.Movements),
	})
	s.metrics.RecordMovements(ctx, "fetched", result.Fetched)
	s.metrics.RecordMovements(ctx, "crude", result.Crude)
	s.metrics.RecordMovements(ctx, "reported", len(result.Movements))
	return nil
}

// WriterFactory opens the sheet writer for a report path
type WriterFactory func(path string) (exporter.SheetWriter, error)

// ExcelWriterFactory opens an xlsx workbook
func ExcelWriterFactory(path string) (exporter.SheetWriter, error) {
	return exporter.NewExcelWorkbook(path)
}

// ReportStage writes the grade-grouped workbook
type ReportStage struct {
	BaseStage
	path      string
	newWriter WriterFactory
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// NewReportStage creates the report step. A nil factory writes xlsx.
func NewReportStage(path string, newWriter WriterFactory, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *ReportStage {
	if newWriter == nil {
		newWriter = ExcelWriterFactory
	}
	return &ReportStage{
		BaseStage: NewBaseStage(StageIDReport, StageNameReport),
		path:      path,
		newWriter: newWriter,
		metrics:   metrics,
		logger:    stageLogger(logger, StageIDReport),
	}
}

// Validate requires an output path and a transform result
func (s *ReportStage) Validate(state *OperationState) error {
	if s.path == "" {
		return apperrors.NewValidationError(s.ID(), "no report path configured")
	}
	return requireResult(s.ID(), state)
}

// Execute renders the movements and closes the workbook
func (s *ReportStage) Execute(ctx context.Context, state *OperationState) error {
	result, _ := state.Result()

	writer, err := s.newWriter(s.path)
	if err != nil {
		return apperrors.NewReportError("open workbook", err)
	}
	if err := exporter.NewGradeReport(writer, s.logger).Write(ctx, result.Movements); err != nil {
		return err
	}

	grades, _ := exporter.GroupByGrade(result.Movements)
	s.metrics.RecordSheets(ctx, len(grades))
	state.SetContext(ContextKeyReportPath, s.path)
	return nil
}

// ExportCSVStage writes the report movements to one CSV file
type ExportCSVStage struct {
	BaseStage
	path     string
	exporter *exporter.MovementExporter
}

// NewExportCSVStage creates the CSV step. An empty path skips it.
func NewExportCSVStage(path string, logger *slog.Logger) *ExportCSVStage {
	return &ExportCSVStage{
		BaseStage: NewBaseStage(StageIDExportCSV, StageNameExportCSV),
		path:      path,
		exporter:  exporter.NewMovementExporter(stageLogger(logger, StageIDExportCSV)),
	}
}

// Validate requires a transform result
func (s *ExportCSVStage) Validate(state *OperationState) error {
	return requireResult(s.ID(), state)
}

// Execute writes the CSV
func (s *ExportCSVStage) Execute(ctx context.Context, state *OperationState) error {
	if s.path == "" {
		return Skip("no csv path configured")
	}
	result, _ := state.Result()
	return s.exporter.ExportCSV(ctx, s.path, result.Movements)
}

// SummaryStage writes per-grade totals as JSON
type SummaryStage struct {
	BaseStage
	path       string
	summarizer *dataprocessing.Summarizer
}

// NewSummaryStage creates the summary step. An empty path skips it.
func NewSummaryStage(path string, logger *slog.Logger) *SummaryStage {
	return &SummaryStage{
		BaseStage:  NewBaseStage(StageIDSummary, StageNameSummary),
		path:       path,
		summarizer: dataprocessing.NewSummarizer(stageLogger(logger, StageIDSummary)),
	}
}

// Validate requires a transform result
func (s *SummaryStage) Validate(state *OperationState) error {
	return requireResult(s.ID(), state)
}

// Execute summarizes the report movements and writes the JSON file
func (s *SummaryStage) Execute(ctx context.Context, state *OperationState) error {
	if s.path == "" {
		return Skip("no summary path configured")
	}
	result, _ := state.Result()
	return s.summarizer.WriteJSON(ctx, s.path, s.summarizer.Summarize(ctx, result.Movements))
}

func requireTable(stepID string, state *OperationState) error {
	if _, ok := state.Table(); !ok {
		return apperrors.NewValidationError(stepID, "no movements table in operation state")
	}
	return nil
}

func requireResult(stepID string, state *OperationState) error {
	if _, ok := state.Result(); !ok {
		return apperrors.NewValidationError(stepID, "no transform result in operation state")
	}
	return nil
}

func stageLogger(logger *slog.Logger, stepID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("step", stepID))
}
