package model

// TaskStatus is the terminal/in-flight state of one agent attempt.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusFailure TaskStatus = "failure"
	StatusTimeout TaskStatus = "timeout"
	StatusError   TaskStatus = "error"
)

// Terminal reports whether a status can no longer change.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusTimeout, StatusError:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a whole evolution run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Hypothesis is feedback derived from a non-passing generation. It biases
// the prompts of every task in the next generation.
type Hypothesis struct {
	Generation  int    `json:"generation"`
	WinnerID    string `json:"winner_id"`
	Analysis    string `json:"analysis"`
	PromptDelta string `json:"prompt_delta"`
}

// PlanStep is one independently implementable step of the decomposed plan.
type PlanStep struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// Task is one agent attempt at a step. Immutable once created.
type Task struct {
	ID               string       `json:"id"`
	Generation       int          `json:"generation"`
	StepIndex        int          `json:"step_index"`
	Prompt           string       `json:"prompt"`
	ParentHypotheses []Hypothesis `json:"parent_hypotheses,omitempty"`
}

// Result is the terminal outcome of one task, created exactly once by the
// job executor and never mutated afterwards.
type Result struct {
	TaskID          string     `json:"task_id"`
	Status          TaskStatus `json:"status"`
	Output          string     `json:"output"`
	PatchPath       string     `json:"patch_path"`
	DurationSeconds float64    `json:"duration_seconds"`
	TranscriptPath  string     `json:"transcript_path,omitempty"`
}

// EvalSpec configures how a result is scored.
type EvalSpec struct {
	Command         string   `json:"command"`
	TimeoutSeconds  int      `json:"timeout_seconds"`
	SuccessCriteria string   `json:"success_criteria"`
	ExpectedOutput  string   `json:"expected_output,omitempty"`
	ProtectedPaths  []string `json:"protected_paths,omitempty"`
}

// Evaluation is the scored outcome of one Result.
type Evaluation struct {
	TaskID  string  `json:"task_id"`
	Passed  bool    `json:"passed"`
	Score   float64 `json:"score"`
	Details string  `json:"details"`
}

// GenerationRecord is the append-only record of one executed generation.
type GenerationRecord struct {
	Generation int          `json:"generation"`
	StepIndex  int          `json:"step_index"`
	Tasks      []Task       `json:"tasks"`
	Results    []Result     `json:"results"`
	Evals      []Evaluation `json:"eval_results"`
	WinnerID   string       `json:"winner_id,omitempty"`
	Hypothesis *Hypothesis  `json:"hypothesis,omitempty"`
}

// TaskProgress is a best-effort live view of one in-flight task.
type TaskProgress struct {
	TaskID         string     `json:"task_id"`
	Status         TaskStatus `json:"status"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	Progress       string     `json:"progress,omitempty"`
}

// WorkflowStatus is a best-effort snapshot of the in-flight generation.
type WorkflowStatus struct {
	Generation int            `json:"generation"`
	StepIndex  int            `json:"step_index"`
	Tasks      []TaskProgress `json:"tasks"`
}

// RunState is the full recoverable history of one run. The orchestrator is
// its only writer; it is persisted after every state-relevant transition.
type RunState struct {
	ID                string             `json:"id"`
	Status            RunStatus          `json:"status"`
	CurrentStep       int                `json:"current_step"`
	CurrentGeneration int                `json:"current_generation"`
	PlanSteps         []PlanStep         `json:"plan_steps"`
	Generations       []GenerationRecord `json:"generations"`
	Hypotheses        []Hypothesis       `json:"hypotheses"`
}
