// Package operations runs the tracker as an ordered list of steps over one
// OperationState.
//
// A run is fetch (or replay), snapshot, transform, report and the optional
// CSV and summary exports. Steps pass the table and the transform result
// through typed accessors on OperationState. Each step gets a StepState,
// a span and a duration measurement; the first failing step aborts the run
// with a PipelineError naming it. A step with nothing to do returns Skip.
package operations
