package operations

import (
	"context"
	"log/slog"
	"time"

	"crudetrack/internal/infrastructure"
)

// logOperationStart logs the start of a run
func (p *Pipeline) logOperationStart(ctx context.Context, operationID string) {
	attrs := []any{
		slog.String("operation_id", operationID),
		slog.Int("steps", len(p.steps)),
	}
	if spanTraceID := infrastructure.TraceIDFromContext(ctx); spanTraceID != "" {
		attrs = append(attrs, slog.String("otel_trace_id", spanTraceID))
	}
	p.logger.InfoContext(ctx, "operation_start", attrs...)
}

// logOperationComplete logs the end of a run
func (p *Pipeline) logOperationComplete(ctx context.Context, operationID string, duration time.Duration, status OperationStatus) {
	p.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", operationID),
		slog.String("status", string(status)),
		slog.Duration("duration", duration))
}

// logOperationError logs a run failure
func (p *Pipeline) logOperationError(ctx context.Context, operationID string, err error) {
	p.logger.ErrorContext(ctx, "operation_error",
		slog.String("operation_id", operationID),
		slog.String("error", err.Error()))
}

// logStageStart logs the start of a step
func (p *Pipeline) logStageStart(ctx context.Context, operationID, stageID string) {
	p.logger.InfoContext(ctx, "stage_start",
		slog.String("operation_id", operationID),
		slog.String("step", stageID))
}

// logStageComplete logs the completion of a step
func (p *Pipeline) logStageComplete(ctx context.Context, operationID, stageID string, duration time.Duration) {
	p.logger.InfoContext(ctx, "stage_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.Duration("duration", duration))
}

// logStageSkipped logs a step that had nothing to do
func (p *Pipeline) logStageSkipped(ctx context.Context, operationID, stageID, reason string) {
	p.logger.InfoContext(ctx, "stage_skipped",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.String("reason", reason))
}

// logStageError logs a step failure
func (p *Pipeline) logStageError(ctx context.Context, operationID, stageID string, err error) {
	p.logger.ErrorContext(ctx, "stage_error",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.String("error", err.Error()))
}
