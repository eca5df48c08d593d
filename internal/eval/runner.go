// Package eval scores task results against the validation harness,
// overlaying the pristine protected snapshot so the harness cannot be
// altered by the agent under evaluation.
package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"darwin/internal/logger"
	"darwin/internal/model"
	"darwin/internal/workspace"
)

const detailsLimit = 2000

// Runner evaluates results. workspaceRoot locates each task's workspace as
// workspaceRoot/<task id>.
type Runner struct {
	workspaceRoot string
}

func NewRunner(workspaceRoot string) *Runner {
	return &Runner{workspaceRoot: workspaceRoot}
}

func failing(taskID, details string) model.Evaluation {
	return model.Evaluation{TaskID: taskID, Passed: false, Score: 0.0, Details: details}
}

// Evaluate runs the scoring command against the task's artifact. Results
// that never reached success/failure are zero-scored without running
// anything; command timeouts and execution errors degrade to zero-score
// evaluations, never to a crash.
func (r *Runner) Evaluate(ctx context.Context, result model.Result, spec model.EvalSpec) model.Evaluation {
	if result.Status != model.StatusSuccess && result.Status != model.StatusFailure {
		logger.Log.Printf("[Eval] Skipping eval for %s: status=%s", result.TaskID, result.Status)
		return failing(result.TaskID, fmt.Sprintf("Agent status: %s, skipping eval", result.Status))
	}

	ws := filepath.Join(r.workspaceRoot, result.TaskID)
	repoDir := filepath.Join(ws, "repo")
	if _, err := os.Stat(repoDir); err != nil {
		return failing(result.TaskID, "Repo directory not found")
	}

	evalDir, scratch, err := prepareEvalDir(ws, repoDir)
	if err != nil {
		return failing(result.TaskID, fmt.Sprintf("Eval error: %v", err))
	}
	if scratch {
		defer os.RemoveAll(evalDir)
	}

	output, exitCode, err := r.runCommand(ctx, evalDir, spec)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failing(result.TaskID, fmt.Sprintf("Eval timed out after %ds", spec.TimeoutSeconds))
		}
		return failing(result.TaskID, fmt.Sprintf("Eval error: %v", err))
	}

	var passed bool
	var score float64
	switch spec.SuccessCriteria {
	case "output-match":
		passed = spec.ExpectedOutput != "" && strings.Contains(output, spec.ExpectedOutput)
		if passed {
			score = 1.0
		}
	case "exit-code":
		passed = exitCode == 0
		if passed {
			score = 1.0
		} else {
			score = ParseTestScore(output)
		}
	default:
		passed = exitCode == 0
		if passed {
			score = 1.0
		}
	}

	logger.Log.Printf("[Eval] %s: exit=%d passed=%t score=%.3f cmd=%s",
		result.TaskID, exitCode, passed, score, spec.Command)

	details := output
	if len(details) > detailsLimit {
		details = details[len(details)-detailsLimit:]
	}

	return model.Evaluation{
		TaskID:  result.TaskID,
		Passed:  passed,
		Score:   score,
		Details: details,
	}
}

// runCommand executes the scoring command in evalDir under the eval
// timeout, returning combined output and the exit code. A non-zero exit is
// not an error here; only failures to run the command are.
func (r *Runner) runCommand(ctx context.Context, evalDir string, spec model.EvalSpec) (string, int, error) {
	timeout := time.Duration(spec.TimeoutSeconds) * time.Second
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", spec.Command)
	cmd.Dir = evalDir
	cmd.Env = augmentedEnv(evalDir)

	out, err := cmd.CombinedOutput()
	if cctx.Err() == context.DeadlineExceeded {
		return string(out), -1, context.DeadlineExceeded
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), -1, err
	}
	return string(out), 0, nil
}

// augmentedEnv prepends the eval directory's local tool directories to
// PATH so scoring commands find project-pinned test runners.
func augmentedEnv(evalDir string) []string {
	env := os.Environ()
	var extra []string
	for _, dir := range []string{".venv/bin", "node_modules/.bin"} {
		candidate := filepath.Join(evalDir, dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			extra = append(extra, candidate)
		}
	}
	if len(extra) == 0 {
		return env
	}
	prefix := strings.Join(extra, string(os.PathListSeparator))
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + prefix + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
			return env
		}
	}
	return append(env, "PATH="+prefix)
}

// prepareEvalDir picks the directory to score. Without a pristine snapshot
// the task's repo copy is scored directly. With one, the repo is copied to
// a scratch eval dir and every pristine file is overlaid on top, so the
// harness the agent could have modified is replaced by the saved version.
// The second return reports whether a scratch dir was created.
func prepareEvalDir(ws, repoDir string) (string, bool, error) {
	pristine := filepath.Join(ws, "pristine")
	if _, err := os.Stat(pristine); err != nil {
		return repoDir, false, nil
	}

	evalDir := filepath.Join(ws, "eval")
	if err := os.RemoveAll(evalDir); err != nil {
		return "", false, fmt.Errorf("clear eval dir: %w", err)
	}
	if err := workspace.CopyTree(repoDir, evalDir); err != nil {
		return "", false, fmt.Errorf("copy repo to eval dir: %w", err)
	}

	err := filepath.Walk(pristine, func(path string, info os.FileInfo, werr error) error {
		if werr != nil {
			return werr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(pristine, path)
		if err != nil {
			return err
		}
		return workspace.CopyFile(path, filepath.Join(evalDir, rel))
	})
	if err != nil {
		return "", false, fmt.Errorf("overlay pristine files: %w", err)
	}

	logger.Log.Printf("[Eval] Prepared eval dir with protected harness at %s", evalDir)
	return evalDir, true, nil
}
