package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"darwin/internal/model"
)

const (
	DefaultPopulationSize = 5
	DefaultMaxGenerations = 3
	DefaultTaskTimeoutSec = 300
	DefaultEvalTimeoutSec = 120
	DefaultVendor         = "claude-code"
)

// Config carries every knob of an evolution run. It is built once by the
// CLI and passed into constructors explicitly; nothing reads it ambiently.
type Config struct {
	// Plan is the high-level goal, or a path to a file containing it.
	Plan string

	// RepoPath is the target repository the winning artifacts are
	// committed back to.
	RepoPath string

	Eval model.EvalSpec

	Vendor         string
	PopulationSize int
	MaxGenerations int

	// TaskTimeoutSeconds is the per-task wall-clock budget. It is an
	// explicit value, never derived from generation indices.
	TaskTimeoutSeconds int

	// AgentCommand is the shell command the local substrate runs for each
	// task, with the workspace as its working directory.
	AgentCommand string

	OracleBackend string
	OracleModel   string

	StateDir      string
	WorkspacesDir string
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".darwin"
	}
	return filepath.Join(home, ".darwin")
}

func New() Config {
	base := defaultBaseDir()
	return Config{
		Vendor:             DefaultVendor,
		PopulationSize:     DefaultPopulationSize,
		MaxGenerations:     DefaultMaxGenerations,
		TaskTimeoutSeconds: DefaultTaskTimeoutSec,
		Eval: model.EvalSpec{
			TimeoutSeconds:  DefaultEvalTimeoutSec,
			SuccessCriteria: "exit-code",
		},
		StateDir:      filepath.Join(base, "runs"),
		WorkspacesDir: filepath.Join(base, "workspaces"),
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Plan) == "" {
		return fmt.Errorf("config: plan is required")
	}
	if strings.TrimSpace(c.RepoPath) == "" {
		return fmt.Errorf("config: repo path is required")
	}
	if strings.TrimSpace(c.Eval.Command) == "" {
		return fmt.Errorf("config: eval command is required")
	}
	if c.PopulationSize < 1 {
		return fmt.Errorf("config: population size must be >= 1, got %d", c.PopulationSize)
	}
	if c.MaxGenerations < 1 {
		return fmt.Errorf("config: max generations must be >= 1, got %d", c.MaxGenerations)
	}
	if c.TaskTimeoutSeconds < 30 {
		return fmt.Errorf("config: task timeout must be >= 30s, got %d", c.TaskTimeoutSeconds)
	}
	if c.Eval.TimeoutSeconds < 1 {
		return fmt.Errorf("config: eval timeout must be >= 1s, got %d", c.Eval.TimeoutSeconds)
	}
	switch c.Eval.SuccessCriteria {
	case "", "exit-code", "output-match":
	default:
		return fmt.Errorf("config: unknown success criteria %q", c.Eval.SuccessCriteria)
	}
	if c.Eval.SuccessCriteria == "output-match" && c.Eval.ExpectedOutput == "" {
		return fmt.Errorf("config: output-match criteria requires an expected output")
	}
	return nil
}

// PlanText resolves the plan: if Plan names a readable file, its contents
// are the plan, otherwise Plan itself is the goal text.
func (c *Config) PlanText() (string, error) {
	if info, err := os.Stat(c.Plan); err == nil && !info.IsDir() {
		b, err := os.ReadFile(c.Plan)
		if err != nil {
			return "", fmt.Errorf("config: read plan file: %w", err)
		}
		return string(b), nil
	}
	return c.Plan, nil
}
