// Package workflow orchestrates one generation: provision workspaces,
// dispatch all tasks concurrently, await all results, then evaluate them.
package workflow

import (
	"context"
	"time"

	"darwin/internal/model"
)

// Engine is the generation-execution contract. Implementations can be
// swapped without touching orchestration logic.
type Engine interface {
	// ExecuteGeneration runs all tasks concurrently and returns their
	// results paired to tasks by id. Wall-clock cost is bounded by the
	// slowest task, not the sum.
	ExecuteGeneration(ctx context.Context, tasks []model.Task, timeout time.Duration) ([]model.Result, error)

	// RunEval evaluates every result against the harness.
	RunEval(ctx context.Context, results []model.Result, spec model.EvalSpec) ([]model.Evaluation, error)

	// Status returns best-effort progress for the in-flight generation.
	// Non-blocking and safe to call concurrently with ExecuteGeneration.
	Status() model.WorkflowStatus

	// Cancel stops and reclaims all in-flight jobs. Idempotent; safe when
	// no generation is in flight.
	Cancel()
}
