// Package display renders run progress and results for the terminal.
package display

import (
	"fmt"
	"strings"

	"darwin/internal/model"
)

func FormatHeader(runID string) string {
	return fmt.Sprintf("=== darwin run %s ===", runID)
}

func FormatPlan(steps []model.PlanStep) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Plan: %d step(s)\n", len(steps)))
	for _, s := range steps {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", s.Index, s.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatGeneration(rec model.GenerationRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Step %d / generation %d:\n", rec.StepIndex, rec.Generation))

	evalsByID := make(map[string]model.Evaluation, len(rec.Evals))
	for _, e := range rec.Evals {
		evalsByID[e.TaskID] = e
	}
	for _, r := range rec.Results {
		e := evalsByID[r.TaskID]
		marker := " "
		if r.TaskID == rec.WinnerID && rec.WinnerID != "" {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("  %s %-14s status=%-8s passed=%-5t score=%.2f (%.1fs)\n",
			marker, r.TaskID, r.Status, e.Passed, e.Score, r.DurationSeconds))
	}
	if rec.Hypothesis != nil {
		sb.WriteString(fmt.Sprintf("  hypothesis: %s\n", rec.Hypothesis.Analysis))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatRunSummary(st *model.RunState) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run %s: %s\n", st.ID, st.Status))
	sb.WriteString(fmt.Sprintf("  steps: %d, generations recorded: %d, hypotheses: %d\n",
		len(st.PlanSteps), len(st.Generations), len(st.Hypotheses)))
	for _, rec := range st.Generations {
		winner := rec.WinnerID
		if winner == "" {
			winner = "-"
		}
		sb.WriteString(fmt.Sprintf("  step %d gen %d: %d task(s), winner %s\n",
			rec.StepIndex, rec.Generation, len(rec.Tasks), winner))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatWorkflowStatus(ws model.WorkflowStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Step %d / generation %d:\n", ws.StepIndex, ws.Generation))
	for _, t := range ws.Tasks {
		line := fmt.Sprintf("  %-14s %-8s %.0fs", t.TaskID, t.Status, t.ElapsedSeconds)
		if t.Progress != "" {
			line += " " + t.Progress
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
