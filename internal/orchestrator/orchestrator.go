// Package orchestrator composes the evolution engine, workflow engine,
// analyzer, and state store into the top-level run state machine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"darwin/internal/agent"
	"darwin/internal/analyzer"
	"darwin/internal/config"
	"darwin/internal/eval"
	"darwin/internal/evolution"
	"darwin/internal/job"
	"darwin/internal/logger"
	"darwin/internal/model"
	"darwin/internal/oracle"
	"darwin/internal/patch"
	"darwin/internal/planner"
	"darwin/internal/state"
	"darwin/internal/workflow"
	"darwin/internal/workspace"
)

// Orchestrator owns RunState exclusively and persists it after every
// state-relevant transition.
type Orchestrator struct {
	cfg         config.Config
	runID       string
	planner     *planner.Planner
	analyzer    *analyzer.Analyzer
	evolution   *evolution.Engine
	engine      workflow.Engine
	provisioner *workspace.Provisioner
	store       *state.Store

	// readiness confirms external infrastructure before any generation
	// runs. Nil means nothing to confirm.
	readiness func(ctx context.Context) error

	state *model.RunState
}

// New wires an orchestrator from explicit collaborators. Tests inject
// fakes here; production wiring lives in NewFromConfig.
func New(
	cfg config.Config,
	runID string,
	pl *planner.Planner,
	an *analyzer.Analyzer,
	ev *evolution.Engine,
	engine workflow.Engine,
	provisioner *workspace.Provisioner,
	store *state.Store,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		runID:       runID,
		planner:     pl,
		analyzer:    an,
		evolution:   ev,
		engine:      engine,
		provisioner: provisioner,
		store:       store,
		state: &model.RunState{
			ID:     runID,
			Status: model.RunPending,
		},
	}
}

// NewFromConfig builds the full production assembly: oracle client, vendor,
// local substrate, workspace provisioner, evaluator, and workflow engine.
func NewFromConfig(cfg config.Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vendor, err := agent.Lookup(cfg.Vendor)
	if err != nil {
		return nil, err
	}

	oracleClient, err := oracle.NewClient(oracle.Config{
		Backend: cfg.OracleBackend,
		Model:   cfg.OracleModel,
	}, 120*time.Second)
	if err != nil {
		return nil, err
	}

	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()[:12]
	provisioner := workspace.NewProvisioner(cfg.WorkspacesDir, runID, cfg.RepoPath, cfg.Eval.ProtectedPaths, vendor)
	executor := job.NewExecutor(job.NewLocalSubstrate(cfg.AgentCommand))
	evaluator := eval.NewRunner(filepath.Join(cfg.WorkspacesDir, runID))
	engine := workflow.NewLocalEngine(provisioner, executor, evaluator)

	return New(
		cfg,
		runID,
		planner.New(oracleClient),
		analyzer.New(oracleClient),
		evolution.NewEngine(vendor),
		engine,
		provisioner,
		store,
	), nil
}

func (o *Orchestrator) RunID() string { return o.runID }

// SetReadinessCheck installs the external infrastructure check run before
// plan decomposition.
func (o *Orchestrator) SetReadinessCheck(f func(ctx context.Context) error) {
	o.readiness = f
}

// Status exposes the in-flight generation's progress.
func (o *Orchestrator) Status() model.WorkflowStatus {
	return o.engine.Status()
}

// persist saves the run state; persistence failures are logged, never
// allowed to take the run down.
func (o *Orchestrator) persist() {
	if err := o.store.Save(o.state); err != nil {
		logger.Log.Printf("[Orchestrator] Failed to persist run state: %v", err)
	}
}

// Run executes the full evolution loop. The returned state is always
// terminal (completed, failed, or cancelled) and already persisted.
func (o *Orchestrator) Run(ctx context.Context) (*model.RunState, error) {
	o.state.Status = model.RunRunning
	o.persist()

	err := o.runLoop(ctx)
	switch {
	case err == nil:
		o.state.Status = model.RunCompleted
	case errors.Is(err, context.Canceled):
		logger.Log.Printf("[Orchestrator] Run %s cancelled, reclaiming jobs", o.runID)
		o.engine.Cancel()
		o.state.Status = model.RunCancelled
		err = nil
	default:
		logger.Log.Printf("[Orchestrator] Run %s failed: %v", o.runID, err)
		o.state.Status = model.RunFailed
	}
	o.persist()
	return o.state, err
}

func (o *Orchestrator) runLoop(ctx context.Context) error {
	if o.readiness != nil {
		if err := o.readiness(ctx); err != nil {
			return fmt.Errorf("infrastructure not ready: %w", err)
		}
	}

	planText, err := o.cfg.PlanText()
	if err != nil {
		return err
	}

	steps, err := o.planner.Decompose(ctx, planText)
	if err != nil {
		return err
	}
	o.state.PlanSteps = steps
	o.persist()

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.state.CurrentStep = step.Index
		o.persist()
		logger.Log.Printf("[Orchestrator] Step %d: %s", step.Index, step.Description)

		winnerID, err := o.evolveStep(ctx, step.Index, step.Prompt)
		if err != nil {
			return err
		}
		if winnerID != "" {
			if err := o.applyWinner(winnerID); err != nil {
				return err
			}
			logger.Log.Printf("[Orchestrator] Step %d winner: %s", step.Index, winnerID)
		} else {
			// No winner is not fatal; later steps build on the best
			// available state.
			logger.Log.Printf("[Orchestrator] Step %d produced no winner", step.Index)
		}
	}

	return nil
}

// evolveStep runs the generation loop for one step and returns the winning
// task id, or "" when every generation was exhausted without a pass.
func (o *Orchestrator) evolveStep(ctx context.Context, stepIndex int, basePrompt string) (string, error) {
	var hypotheses []model.Hypothesis
	winnerID := ""

	for gen := 0; gen < o.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		o.state.CurrentGeneration = gen
		o.persist()

		var tasks []model.Task
		if gen == 0 {
			tasks = o.evolution.CreateInitialPopulation(basePrompt, stepIndex, o.cfg.PopulationSize)
		} else {
			tasks = o.evolution.Evolve(basePrompt, stepIndex, gen, o.cfg.PopulationSize, hypotheses)
		}

		logger.Log.Printf("[Orchestrator] Step %d generation %d: dispatching %d task(s)",
			stepIndex, gen, len(tasks))

		timeout := time.Duration(o.cfg.TaskTimeoutSeconds) * time.Second
		results, err := o.engine.ExecuteGeneration(ctx, tasks, timeout)
		if err != nil {
			return "", fmt.Errorf("generation %d execution: %w", gen, err)
		}

		evals, err := o.engine.RunEval(ctx, results, o.cfg.Eval)
		if err != nil {
			return "", fmt.Errorf("generation %d evaluation: %w", gen, err)
		}

		winnerID = o.analyzer.PickWinner(results, evals)
		record := model.GenerationRecord{
			Generation: gen,
			StepIndex:  stepIndex,
			Tasks:      tasks,
			Results:    results,
			Evals:      evals,
			WinnerID:   winnerID,
		}

		if best, ok := bestEval(evals); ok && best.Passed {
			record.WinnerID = best.TaskID
			o.state.Generations = append(o.state.Generations, record)
			o.persist()
			return best.TaskID, nil
		}

		if gen < o.cfg.MaxGenerations-1 {
			hyp, err := o.analyzer.Analyze(ctx, basePrompt, results, evals, gen)
			if err != nil {
				// A lost hypothesis degrades the next generation's prompts
				// but must not abort the run.
				logger.Log.Printf("[Orchestrator] Hypothesis analysis failed for generation %d: %v", gen, err)
			} else {
				record.Hypothesis = &hyp
				hypotheses = append(hypotheses, hyp)
				o.state.Hypotheses = append(o.state.Hypotheses, hyp)
			}
		}

		o.state.Generations = append(o.state.Generations, record)
		o.persist()
	}

	// Exhausted every generation; the last generation's best is the
	// step's outcome, possibly none.
	return winnerID, nil
}

func bestEval(evals []model.Evaluation) (model.Evaluation, bool) {
	if len(evals) == 0 {
		return model.Evaluation{}, false
	}
	best := evals[0]
	for _, e := range evals[1:] {
		if e.Score > best.Score {
			best = e
		}
	}
	return best, true
}

// applyWinner commits the winning task's repo tree back onto the target
// repository, skipping version-control metadata.
func (o *Orchestrator) applyWinner(winnerID string) error {
	ws := o.provisioner.Path(winnerID)
	patchFile := filepath.Join(ws, "results", "patch.diff")

	info, err := os.Stat(patchFile)
	if err != nil || info.Size() == 0 {
		logger.Log.Printf("[Orchestrator] Winner %s produced no patch, nothing to apply", winnerID)
		return nil
	}

	winnerRepo := filepath.Join(ws, "repo")
	if _, err := os.Stat(winnerRepo); err != nil {
		logger.Log.Printf("[Orchestrator] Winner %s has no repo tree, nothing to apply", winnerID)
		return nil
	}

	entries, err := os.ReadDir(winnerRepo)
	if err != nil {
		return fmt.Errorf("read winner repo: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		src := filepath.Join(winnerRepo, entry.Name())
		dst := filepath.Join(o.cfg.RepoPath, entry.Name())
		if entry.IsDir() {
			if err := os.RemoveAll(dst); err != nil {
				return fmt.Errorf("replace %s: %w", entry.Name(), err)
			}
			if err := workspace.CopyTree(src, dst); err != nil {
				return fmt.Errorf("apply %s: %w", entry.Name(), err)
			}
		} else {
			if err := workspace.CopyFile(src, dst); err != nil {
				return fmt.Errorf("apply %s: %w", entry.Name(), err)
			}
		}
	}

	if sum, err := patch.Summarize(patchFile); err == nil {
		logger.Log.Printf("[Orchestrator] Applied winner '%s' to repo: %s", winnerID, sum)
	} else {
		logger.Log.Printf("[Orchestrator] Applied winner '%s' to repo (unparseable patch: %v)", winnerID, err)
	}
	return nil
}
