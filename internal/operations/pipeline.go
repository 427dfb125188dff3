package operations

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "crudetrack/internal/errors"
	"crudetrack/internal/infrastructure"
)

// Pipeline runs steps in order over one OperationState. The first failing
// step aborts the run.
type Pipeline struct {
	steps  []Step
	tracer *OperationTracer
	logger *slog.Logger
}

// NewPipeline creates a pipeline. A nil tracer records nothing.
func NewPipeline(tracer *OperationTracer, logger *slog.Logger, steps ...Step) *Pipeline {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		steps:  steps,
		tracer: tracer,
		logger: infrastructure.WithComponent(logger, "pipeline"),
	}
}

// Steps returns the IDs of the steps in run order
func (p *Pipeline) Steps() []string {
	ids := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		ids = append(ids, step.ID())
	}
	return ids
}

// Run executes every step against state. The returned error is a
// PipelineError naming the failed step.
func (p *Pipeline) Run(ctx context.Context, state *OperationState) error {
	if err := p.checkSteps(); err != nil {
		state.Fail(err)
		return err
	}

	ctx, span := p.tracer.TraceOperationExecution(ctx, state.ID)
	state.Start()
	p.logOperationStart(ctx, state.ID)

	err := p.runSteps(ctx, state)
	switch {
	case err == nil:
		state.Complete()
	case ctx.Err() != nil:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	if err != nil {
		p.logOperationError(ctx, state.ID, err)
	}
	p.logOperationComplete(ctx, state.ID, state.Duration(), state.GetStatus())
	p.tracer.RecordOperationCompletion(ctx, span, state, err)
	return err
}

func (p *Pipeline) runSteps(ctx context.Context, state *OperationState) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return apperrors.WrapError(fmt.Errorf("run cancelled before step: %w", err), step.ID())
		}
		if err := p.runStep(ctx, state, step); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := NewStepState(step.ID(), step.Name())
	state.SetStage(step.ID(), stepState)

	stepCtx, span := p.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	stepState.Start()
	p.logStageStart(stepCtx, state.ID, step.ID())

	err := step.Validate(state)
	if err == nil {
		err = step.Execute(stepCtx, state)
	}

	if reason, skipped := IsSkip(err); skipped {
		stepState.Skip(reason)
		p.logStageSkipped(stepCtx, state.ID, step.ID(), reason)
		p.tracer.RecordStageCompletion(stepCtx, span, step.ID(), stepState.Duration(), StepStatusSkipped, nil)
		return nil
	}

	if err != nil {
		err = apperrors.WrapError(err, step.ID())
		stepState.Fail(err)
		p.logStageError(stepCtx, state.ID, step.ID(), err)
		p.tracer.RecordStageCompletion(stepCtx, span, step.ID(), stepState.Duration(), StepStatusFailed, err)
		return err
	}

	stepState.Complete()
	p.logStageComplete(stepCtx, state.ID, step.ID(), stepState.Duration())
	p.tracer.RecordStageCompletion(stepCtx, span, step.ID(), stepState.Duration(), StepStatusCompleted, nil)
	return nil
}

// checkSteps rejects an empty pipeline and duplicate step IDs
func (p *Pipeline) checkSteps() error {
	if len(p.steps) == 0 {
		return apperrors.NewValidationError("pipeline", "no steps configured")
	}
	seen := make(map[string]bool, len(p.steps))
	for _, step := range p.steps {
		if seen[step.ID()] {
			return apperrors.NewValidationError("pipeline", fmt.Sprintf("duplicate step %q", step.ID()))
		}
		seen[step.ID()] = true
	}
	return nil
}
