package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"darwin/internal/logger"
	"darwin/internal/model"
)

const defaultPollInterval = 5 * time.Second

// Executor drives the per-task state machine
// pending → running → {success, failure, timeout, error}.
type Executor struct {
	substrate    Substrate
	pollInterval time.Duration

	mu      sync.Mutex
	handles map[string]string // task id → job handle
}

func NewExecutor(substrate Substrate) *Executor {
	return &Executor{
		substrate:    substrate,
		pollInterval: defaultPollInterval,
		handles:      map[string]string{},
	}
}

// SetPollInterval overrides the wait-loop poll interval.
func (e *Executor) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

// Launch starts a job for the task. The task is running once this returns.
func (e *Executor) Launch(task model.Task, workspacePath string) error {
	handle, err := e.substrate.CreateJob(task, workspacePath)
	if err != nil {
		return fmt.Errorf("create job for task %s: %w", task.ID, err)
	}
	e.mu.Lock()
	e.handles[task.ID] = handle
	e.mu.Unlock()
	logger.Log.Printf("[Job] Created job '%s' for task '%s'", handle, task.ID)
	return nil
}

func (e *Executor) handle(taskID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[taskID]
	return h, ok
}

// WaitForJob polls until the job reaches a terminal state. Three exits:
// terminal substrate counts, a fatal event (immediate error, no waiting out
// the budget), or the hard timeout. The poll sleep yields to ctx so an
// external cancel stops the wait promptly.
func (e *Executor) WaitForJob(ctx context.Context, taskID string, workspacePath string, timeout time.Duration) model.Result {
	handle, ok := e.handle(taskID)
	if !ok {
		return model.Result{
			TaskID: taskID,
			Status: model.StatusError,
			Output: "no job was launched for this task",
		}
	}

	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed > timeout {
			e.teardown(handle)
			return model.Result{
				TaskID:          taskID,
				Status:          model.StatusTimeout,
				Output:          fmt.Sprintf("Timed out after %s", timeout),
				DurationSeconds: elapsed.Seconds(),
			}
		}

		succeeded, failed, err := e.substrate.JobCounts(handle)
		if err != nil {
			return model.Result{
				TaskID:          taskID,
				Status:          model.StatusError,
				Output:          fmt.Sprintf("Job not found: %v", err),
				DurationSeconds: elapsed.Seconds(),
			}
		}
		if succeeded > 0 {
			return e.collectResult(taskID, workspacePath, model.StatusSuccess, elapsed)
		}
		if failed > 0 {
			return e.collectResult(taskID, workspacePath, model.StatusFailure, elapsed)
		}

		if msg, fatal := e.substrate.FatalEvent(taskID); fatal {
			logger.Log.Printf("[Job] Fatal event for task %s: %s", taskID, msg)
			e.teardown(handle)
			return model.Result{
				TaskID:          taskID,
				Status:          model.StatusError,
				Output:          fmt.Sprintf("Job error: %s", msg),
				DurationSeconds: elapsed.Seconds(),
			}
		}

		select {
		case <-ctx.Done():
			e.teardown(handle)
			return model.Result{
				TaskID:          taskID,
				Status:          model.StatusError,
				Output:          "Wait cancelled",
				DurationSeconds: time.Since(start).Seconds(),
			}
		case <-time.After(e.pollInterval):
		}
	}
}

// collectResult reads the job's artifacts from the workspace results
// directory; the job writes them there before exiting.
func (e *Executor) collectResult(taskID, workspacePath string, status model.TaskStatus, elapsed time.Duration) model.Result {
	resultsDir := filepath.Join(workspacePath, "results")

	output := ""
	if b, err := os.ReadFile(filepath.Join(resultsDir, "output.log")); err == nil {
		output = string(b)
	}

	patchPath := filepath.Join(resultsDir, "patch.diff")
	if _, err := os.Stat(patchPath); err != nil {
		patchPath = ""
	}

	transcriptPath := filepath.Join(workspacePath, "transcript", "raw.jsonl")
	if _, err := os.Stat(transcriptPath); err != nil {
		transcriptPath = ""
	}

	return model.Result{
		TaskID:          taskID,
		Status:          status,
		Output:          output,
		PatchPath:       patchPath,
		DurationSeconds: elapsed.Seconds(),
		TranscriptPath:  transcriptPath,
	}
}

// teardown frees substrate resources. Failures are logged, never raised:
// leaking a job is acceptable degradation, breaking the task loop is not.
func (e *Executor) teardown(handle string) {
	if err := e.substrate.DeleteJob(handle); err != nil {
		logger.Log.Printf("[Job] Failed to delete job '%s': %v", handle, err)
	}
}

// Cleanup tears down all jobs of the run.
func (e *Executor) Cleanup() {
	if err := e.substrate.Cleanup(); err != nil {
		logger.Log.Printf("[Job] Cleanup failed: %v", err)
	}
}
