// Package state persists run history as one JSON document per run id, so
// an external reader can reconstruct progress at any point.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"darwin/internal/logger"
	"darwin/internal/model"
)

// textLimit bounds persisted copies of result output and eval details so
// state files cannot grow without bound.
const textLimit = 1000

type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.baseDir, runID+".json")
}

// Save writes the run state atomically: a rename replaces the old document
// so a crash mid-write never leaves a truncated file behind.
func (s *Store) Save(st *model.RunState) error {
	doc := truncated(st)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	tmp := s.path(st.ID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	if err := os.Rename(tmp, s.path(st.ID)); err != nil {
		return fmt.Errorf("replace run state: %w", err)
	}
	return nil
}

// Load reads one run document. Returns os.ErrNotExist if the run is
// unknown.
func (s *Store) Load(runID string) (*model.RunState, error) {
	b, err := os.ReadFile(s.path(runID))
	if err != nil {
		return nil, err
	}
	var st model.RunState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("parse run state %s: %w", runID, err)
	}
	if st.ID == "" {
		return nil, fmt.Errorf("run state %s: missing id", runID)
	}
	return &st, nil
}

// ListRuns returns every valid run document under the store directory,
// sorted by file name. Corrupt or unparseable files are skipped.
func (s *Store) ListRuns() ([]*model.RunState, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list state dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	runs := make([]*model.RunState, 0, len(names))
	for _, name := range names {
		st, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			logger.Log.Printf("[State] Skipping corrupt state file: %s (%v)", name, err)
			continue
		}
		runs = append(runs, st)
	}
	return runs, nil
}

// truncated returns a copy of the state with long text fields bounded.
func truncated(st *model.RunState) *model.RunState {
	out := *st
	out.Generations = make([]model.GenerationRecord, len(st.Generations))
	for i, gen := range st.Generations {
		g := gen
		g.Results = make([]model.Result, len(gen.Results))
		for j, r := range gen.Results {
			r.Output = head(r.Output, textLimit)
			g.Results[j] = r
		}
		g.Evals = make([]model.Evaluation, len(gen.Evals))
		for j, ev := range gen.Evals {
			ev.Details = head(ev.Details, textLimit)
			g.Evals[j] = ev
		}
		out.Generations[i] = g
	}
	return &out
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
