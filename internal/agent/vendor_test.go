package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darwin/internal/model"
)

func TestLookup(t *testing.T) {
	v, err := Lookup("claude-code")
	require.NoError(t, err)
	assert.Equal(t, "claude-code", v.Name())

	_, err = Lookup("nonexistent")
	assert.ErrorContains(t, err, "claude-code")
}

func TestBuildPromptVariants(t *testing.T) {
	v, err := Lookup("claude-code")
	require.NoError(t, err)

	base := "implement the feature"
	assert.Equal(t, base, v.BuildPrompt(base, nil, 0), "variant 0 is the unmodified base prompt")

	seen := map[string]bool{}
	for i := 0; i < len(promptStrategies); i++ {
		seen[v.BuildPrompt(base, nil, i)] = true
	}
	assert.Len(t, seen, len(promptStrategies), "each strategy yields a distinct prompt")

	// Indices wrap around the strategy list.
	assert.Equal(t, v.BuildPrompt(base, nil, 1), v.BuildPrompt(base, nil, 1+len(promptStrategies)))
}

func TestBuildPromptIncludesHypotheses(t *testing.T) {
	v, err := Lookup("claude-code")
	require.NoError(t, err)

	hyps := []model.Hypothesis{
		{Analysis: "tests import a helper nobody wrote", PromptDelta: "write the helper first"},
		{Analysis: "agents rewrote too much"},
	}
	prompt := v.BuildPrompt("base", hyps, 0)

	assert.Contains(t, prompt, "Learnings from previous attempts")
	assert.Contains(t, prompt, "tests import a helper nobody wrote")
	assert.Contains(t, prompt, "write the helper first")
	assert.Contains(t, prompt, "agents rewrote too much")
}

func TestBuildTaskConfig(t *testing.T) {
	v, err := Lookup("claude-code")
	require.NoError(t, err)

	task := model.Task{
		ID:         "agent-cfg1",
		Generation: 2,
		Prompt:     "full prompt text",
		ParentHypotheses: []model.Hypothesis{
			{Analysis: "a", PromptDelta: "d"},
		},
	}
	cfg := v.BuildTaskConfig(task)

	assert.Equal(t, "agent-cfg1", cfg["id"])
	assert.Equal(t, 2, cfg["generation"])
	assert.Equal(t, "claude-code", cfg["vendor"])
	assert.Equal(t, "full prompt text", cfg["prompt"])
	require.Len(t, cfg["parent_hypotheses"], 1)
}
