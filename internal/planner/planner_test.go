package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	response string
	err      error
}

func (f *fakeOracle) Query(context.Context, string) (string, error) {
	return f.response, f.err
}

func TestDecompose(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		steps    int
		wantErr  bool
	}{
		{
			name:     "Raw JSON array",
			response: `[{"index": 0, "description": "a", "prompt": "pa"}, {"index": 1, "description": "b", "prompt": "pb"}]`,
			steps:    2,
		},
		{
			name:     "Fenced JSON array",
			response: "```json\n[{\"index\": 0, \"description\": \"a\", \"prompt\": \"pa\"}]\n```",
			steps:    1,
		},
		{
			name:     "Array embedded in prose",
			response: `Here is the plan: [{"index": 0, "description": "a", "prompt": "pa"}] Good luck!`,
			steps:    1,
		},
		{
			name:     "No array at all",
			response: "I cannot decompose this task.",
			wantErr:  true,
		},
		{
			name:     "Empty array",
			response: "[]",
			wantErr:  true,
		},
		{
			name:     "Malformed JSON inside brackets",
			response: `[{"index": oops}]`,
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(&fakeOracle{response: tc.response})
			steps, err := p.Decompose(context.Background(), "build a parser")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, steps, tc.steps)
			assert.Equal(t, 0, steps[0].Index)
			assert.Equal(t, "pa", steps[0].Prompt)
		})
	}
}

func TestDecomposePropagatesOracleFailure(t *testing.T) {
	p := New(&fakeOracle{err: errors.New("backend down")})
	_, err := p.Decompose(context.Background(), "anything")
	assert.ErrorContains(t, err, "backend down")
}

func TestDecomposePromptCarriesThePlan(t *testing.T) {
	prompt := buildDecomposePrompt("refactor the scheduler")
	assert.Contains(t, prompt, "refactor the scheduler")
	assert.Contains(t, prompt, "JSON array")
}
