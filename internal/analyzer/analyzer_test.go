package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darwin/internal/model"
)

type fakeOracle struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeOracle) Query(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func TestPickWinner(t *testing.T) {
	testCases := []struct {
		name     string
		evals    []model.Evaluation
		expected string
	}{
		{
			name:     "Empty list has no winner",
			evals:    nil,
			expected: "",
		},
		{
			name: "Zero max score never wins",
			evals: []model.Evaluation{
				{TaskID: "a", Score: 0.0},
				{TaskID: "b", Score: 0.0},
			},
			expected: "",
		},
		{
			name: "Maximum score wins",
			evals: []model.Evaluation{
				{TaskID: "a", Score: 0.4},
				{TaskID: "b", Score: 0.9},
				{TaskID: "c", Score: 0.1},
			},
			expected: "b",
		},
		{
			name: "Ties broken by first occurrence",
			evals: []model.Evaluation{
				{TaskID: "a", Score: 0.7},
				{TaskID: "b", Score: 0.7},
			},
			expected: "a",
		},
	}

	a := New(&fakeOracle{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, a.PickWinner(nil, tc.evals))
		})
	}
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	oracle := &fakeOracle{response: "```json\n{\"analysis\": \"winner used smaller diffs\", \"prompt_delta\": \"keep changes minimal\"}\n```"}
	a := New(oracle)

	results := []model.Result{
		{TaskID: "low", Status: model.StatusFailure, Output: "low output"},
		{TaskID: "high", Status: model.StatusSuccess, Output: "high output"},
	}
	evals := []model.Evaluation{
		{TaskID: "low", Score: 0.2, Details: "2 of 10"},
		{TaskID: "high", Score: 0.8, Details: "8 of 10"},
	}

	hyp, err := a.Analyze(context.Background(), "base prompt", results, evals, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, hyp.Generation)
	assert.Equal(t, "high", hyp.WinnerID, "winner is the best-scoring pairing")
	assert.Equal(t, "winner used smaller diffs", hyp.Analysis)
	assert.Equal(t, "keep changes minimal", hyp.PromptDelta)

	// The summary sent to the oracle lists attempts best-first.
	require.Len(t, oracle.prompts, 1)
	prompt := oracle.prompts[0]
	assert.Less(t, strings.Index(prompt, "Agent high"), strings.Index(prompt, "Agent low"))
}

func TestAnalyzeStableSortKeepsOriginalOrderOnTies(t *testing.T) {
	oracle := &fakeOracle{response: `{"analysis": "x", "prompt_delta": "y"}`}
	a := New(oracle)

	results := []model.Result{
		{TaskID: "first", Status: model.StatusFailure},
		{TaskID: "second", Status: model.StatusFailure},
	}
	evals := []model.Evaluation{
		{TaskID: "first", Score: 0.5},
		{TaskID: "second", Score: 0.5},
	}

	hyp, err := a.Analyze(context.Background(), "p", results, evals, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", hyp.WinnerID)
}

func TestAnalyzeDegradesOnNonJSONResponse(t *testing.T) {
	oracle := &fakeOracle{response: "the agents all failed because the tests import a missing module"}
	a := New(oracle)

	hyp, err := a.Analyze(context.Background(), "p",
		[]model.Result{{TaskID: "a", Status: model.StatusFailure}},
		[]model.Evaluation{{TaskID: "a", Score: 0.0}}, 1)
	require.NoError(t, err)

	assert.Equal(t, "a", hyp.WinnerID)
	assert.Contains(t, hyp.Analysis, "missing module")
	assert.Empty(t, hyp.PromptDelta)
}

func TestAnalyzePropagatesOracleFailure(t *testing.T) {
	oracle := &fakeOracle{err: context.DeadlineExceeded}
	a := New(oracle)

	_, err := a.Analyze(context.Background(), "p", nil, nil, 0)
	assert.Error(t, err)
}
