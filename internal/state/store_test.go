package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darwin/internal/model"
)

func sampleState(id string) *model.RunState {
	hyp := model.Hypothesis{
		Generation:  0,
		WinnerID:    "agent-aaaa1111",
		Analysis:    "winner kept the diff small",
		PromptDelta: "prefer minimal changes",
	}
	return &model.RunState{
		ID:                id,
		Status:            model.RunRunning,
		CurrentStep:       1,
		CurrentGeneration: 2,
		PlanSteps: []model.PlanStep{
			{Index: 0, Description: "add parser", Prompt: "implement the parser"},
			{Index: 1, Description: "wire CLI", Prompt: "wire the CLI"},
		},
		Generations: []model.GenerationRecord{
			{
				Generation: 0,
				StepIndex:  0,
				Tasks: []model.Task{
					{ID: "agent-aaaa1111", Generation: 0, StepIndex: 0, Prompt: "implement the parser"},
				},
				Results: []model.Result{
					{TaskID: "agent-aaaa1111", Status: model.StatusSuccess, Output: "ok", DurationSeconds: 12.5},
				},
				Evals: []model.Evaluation{
					{TaskID: "agent-aaaa1111", Passed: true, Score: 1.0, Details: "10 passed"},
				},
				WinnerID:   "agent-aaaa1111",
				Hypothesis: &hyp,
			},
		},
		Hypotheses: []model.Hypothesis{hyp},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	original := sampleState("run-roundtrip")
	require.NoError(t, store.Save(original))

	loaded, err := store.Load("run-roundtrip")
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestSaveLoadEmptyLists(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	original := &model.RunState{ID: "run-empty", Status: model.RunPending}
	require.NoError(t, store.Save(original))

	loaded, err := store.Load("run-empty")
	require.NoError(t, err)
	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.Status, loaded.Status)
	assert.Empty(t, loaded.PlanSteps)
	assert.Empty(t, loaded.Generations)
	assert.Empty(t, loaded.Hypotheses)
}

func TestSaveTruncatesLongTextFields(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	st := sampleState("run-truncate")
	st.Generations[0].Results[0].Output = strings.Repeat("o", 5000)
	st.Generations[0].Evals[0].Details = strings.Repeat("d", 5000)
	require.NoError(t, store.Save(st))

	loaded, err := store.Load("run-truncate")
	require.NoError(t, err)
	assert.Len(t, loaded.Generations[0].Results[0].Output, 1000)
	assert.Len(t, loaded.Generations[0].Evals[0].Details, 1000)

	// Save must not mutate the in-memory state it was given.
	assert.Len(t, st.Generations[0].Results[0].Output, 5000)
}

func TestLoadUnknownRun(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no-such-run")
	assert.True(t, os.IsNotExist(err))
}

func TestListRunsSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleState("run-a")))
	require.NoError(t, store.Save(sampleState("run-b")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noid.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignore me"), 0o644))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}
