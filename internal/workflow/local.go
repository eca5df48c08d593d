package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"darwin/internal/eval"
	"darwin/internal/job"
	"darwin/internal/logger"
	"darwin/internal/metrics"
	"darwin/internal/model"
	"darwin/internal/workspace"
)

// LocalEngine runs generations on a job substrate with per-task local
// workspaces.
type LocalEngine struct {
	provisioner *workspace.Provisioner
	executor    *job.Executor
	evaluator   *eval.Runner

	mu         sync.Mutex
	current    []model.Task
	started    map[string]time.Time
	stepIndex  int
	generation int
	cancelGen  context.CancelFunc
}

func NewLocalEngine(provisioner *workspace.Provisioner, executor *job.Executor, evaluator *eval.Runner) *LocalEngine {
	return &LocalEngine{
		provisioner: provisioner,
		executor:    executor,
		evaluator:   evaluator,
		started:     map[string]time.Time{},
	}
}

// ExecuteGeneration provisions a workspace per task, dispatches every task
// to the job executor, and awaits all of them concurrently. A task whose
// provisioning or dispatch fails yields an error result; its siblings run
// on.
func (e *LocalEngine) ExecuteGeneration(ctx context.Context, tasks []model.Task, timeout time.Duration) ([]model.Result, error) {
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.current = tasks
	e.started = map[string]time.Time{}
	if len(tasks) > 0 {
		e.stepIndex = tasks[0].StepIndex
		e.generation = tasks[0].Generation
	}
	e.cancelGen = cancel
	e.mu.Unlock()

	gm := metrics.GenerationMetrics{
		StepIndex:  e.stepIndex,
		Generation: e.generation,
		Start:      time.Now(),
	}

	results := make([]model.Result, len(tasks))
	g, waitCtx := errgroup.WithContext(gctx)
	// Population size is the de facto parallelism cap; no extra limiter.
	for i, task := range tasks {
		ws, err := e.provisioner.Prepare(task)
		if err == nil {
			err = e.executor.Launch(task, ws)
		}
		if err != nil {
			logger.Log.Printf("[Workflow] Dispatch failed for task %s: %v", task.ID, err)
			results[i] = model.Result{
				TaskID: task.ID,
				Status: model.StatusError,
				Output: fmt.Sprintf("Dispatch failed: %v", err),
			}
			continue
		}

		e.mu.Lock()
		e.started[task.ID] = time.Now()
		e.mu.Unlock()

		g.Go(func() error {
			results[i] = e.executor.WaitForJob(waitCtx, task.ID, ws, timeout)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cancelGen = nil
	e.mu.Unlock()

	gm.End = time.Now()
	for _, r := range results {
		gm.Tasks = append(gm.Tasks, metrics.TaskMetrics{
			TaskID:     r.TaskID,
			Status:     string(r.Status),
			DurationMs: int64(r.DurationSeconds * 1000),
		})
	}
	gm.Finalize()
	if b, err := json.Marshal(gm); err == nil {
		logger.Log.Printf("[Workflow] Generation metrics: %s", b)
	}

	return results, nil
}

// RunEval scores each result. Evaluation order is irrelevant; pairing is
// by task id inside each Evaluation.
func (e *LocalEngine) RunEval(ctx context.Context, results []model.Result, spec model.EvalSpec) ([]model.Evaluation, error) {
	evals := make([]model.Evaluation, 0, len(results))
	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return evals, err
		}
		evals = append(evals, e.evaluator.Evaluate(ctx, result, spec))
	}
	return evals, nil
}

// Status probes each current task's workspace status.json and falls back
// to elapsed-time based running/pending.
func (e *LocalEngine) Status() model.WorkflowStatus {
	e.mu.Lock()
	tasks := e.current
	started := make(map[string]time.Time, len(e.started))
	for k, v := range e.started {
		started[k] = v
	}
	stepIndex, generation := e.stepIndex, e.generation
	e.mu.Unlock()

	progress := make([]model.TaskProgress, 0, len(tasks))
	for _, t := range tasks {
		progress = append(progress, e.taskProgress(t.ID, started))
	}
	return model.WorkflowStatus{
		Generation: generation,
		StepIndex:  stepIndex,
		Tasks:      progress,
	}
}

func (e *LocalEngine) taskProgress(taskID string, started map[string]time.Time) model.TaskProgress {
	elapsed := 0.0
	status := model.StatusPending
	if t0, ok := started[taskID]; ok {
		elapsed = time.Since(t0).Seconds()
		status = model.StatusRunning
	}

	tp := model.TaskProgress{TaskID: taskID, Status: status, ElapsedSeconds: elapsed}

	statusFile := filepath.Join(e.provisioner.Path(taskID), "results", "status.json")
	b, err := os.ReadFile(statusFile)
	if err != nil {
		return tp
	}
	var live struct {
		Status   string `json:"status"`
		Progress string `json:"progress"`
	}
	if err := json.Unmarshal(b, &live); err != nil {
		return tp
	}
	tp.Progress = live.Progress
	switch live.Status {
	case "done":
		tp.Status = model.StatusSuccess
	case "error":
		tp.Status = model.StatusError
	}
	return tp
}

// Cancel stops awaiting the in-flight generation and reclaims substrate
// resources. Safe to call repeatedly or with nothing in flight.
func (e *LocalEngine) Cancel() {
	e.mu.Lock()
	cancel := e.cancelGen
	e.cancelGen = nil
	e.current = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.executor.Cleanup()
}
