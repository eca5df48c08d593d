package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := New()
	cfg.Plan = "build the thing"
	cfg.RepoPath = "/tmp/repo"
	cfg.Eval.Command = "pytest"
	return cfg
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid defaults", func(*Config) {}, ""},
		{"Missing plan", func(c *Config) { c.Plan = " " }, "plan is required"},
		{"Missing repo", func(c *Config) { c.RepoPath = "" }, "repo path is required"},
		{"Missing eval command", func(c *Config) { c.Eval.Command = "" }, "eval command is required"},
		{"Zero population", func(c *Config) { c.PopulationSize = 0 }, "population size"},
		{"Zero generations", func(c *Config) { c.MaxGenerations = 0 }, "max generations"},
		{"Task timeout below floor", func(c *Config) { c.TaskTimeoutSeconds = 29 }, "task timeout"},
		{"Unknown criteria", func(c *Config) { c.Eval.SuccessCriteria = "vibes" }, "unknown success criteria"},
		{
			"Output match without expectation",
			func(c *Config) { c.Eval.SuccessCriteria = "output-match" },
			"expected output",
		},
		{
			"Output match with expectation",
			func(c *Config) {
				c.Eval.SuccessCriteria = "output-match"
				c.Eval.ExpectedOutput = "ok"
			},
			"",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestPlanTextFromFile(t *testing.T) {
	planFile := filepath.Join(t.TempDir(), "plan.md")
	require.NoError(t, os.WriteFile(planFile, []byte("goal: refactor everything"), 0o644))

	cfg := validConfig()
	cfg.Plan = planFile
	text, err := cfg.PlanText()
	require.NoError(t, err)
	assert.Equal(t, "goal: refactor everything", text)
}

func TestPlanTextLiteral(t *testing.T) {
	cfg := validConfig()
	cfg.Plan = "add a --verbose flag"
	text, err := cfg.PlanText()
	require.NoError(t, err)
	assert.Equal(t, "add a --verbose flag", text)
}

func TestDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, DefaultPopulationSize, cfg.PopulationSize)
	assert.Equal(t, DefaultMaxGenerations, cfg.MaxGenerations)
	assert.Equal(t, "exit-code", cfg.Eval.SuccessCriteria)
	assert.Equal(t, DefaultVendor, cfg.Vendor)
	assert.NotEmpty(t, cfg.StateDir)
	assert.NotEmpty(t, cfg.WorkspacesDir)
}
