package agent

import (
	"fmt"
	"strings"

	"darwin/internal/model"
)

// Strategy framings cycled across the population so members of one
// generation do not all attack the problem the same way. Index 0 is the
// unmodified base prompt.
var promptStrategies = []string{
	"",
	"Think step by step. Break the problem down before writing code.",
	"Focus on writing minimal, correct code. Prioritize passing tests over completeness.",
	"Start by reading existing code carefully. Match the project's patterns and conventions.",
	"Consider edge cases. Write defensive code that handles unexpected inputs.",
}

type claudeCodeVendor struct{}

func init() {
	Register("claude-code", func() Vendor { return &claudeCodeVendor{} })
}

func (v *claudeCodeVendor) Name() string { return "claude-code" }

func (v *claudeCodeVendor) BuildPrompt(basePrompt string, hypotheses []model.Hypothesis, variantIndex int) string {
	parts := []string{basePrompt}

	strategy := promptStrategies[variantIndex%len(promptStrategies)]
	if strategy != "" {
		parts = append(parts, fmt.Sprintf("\nApproach: %s", strategy))
	}

	if len(hypotheses) > 0 {
		parts = append(parts, "\n--- Learnings from previous attempts ---")
		for _, h := range hypotheses {
			parts = append(parts, fmt.Sprintf("- %s", h.Analysis))
			if strings.TrimSpace(h.PromptDelta) != "" {
				parts = append(parts, fmt.Sprintf("  %s", h.PromptDelta))
			}
		}
		parts = append(parts, "Use these insights to improve your approach.")
	}

	return strings.Join(parts, "\n")
}

func (v *claudeCodeVendor) BuildTaskConfig(task model.Task) map[string]any {
	hyps := make([]map[string]string, 0, len(task.ParentHypotheses))
	for _, h := range task.ParentHypotheses {
		hyps = append(hyps, map[string]string{
			"analysis":     h.Analysis,
			"prompt_delta": h.PromptDelta,
		})
	}
	return map[string]any{
		"id":                task.ID,
		"generation":        task.Generation,
		"vendor":            v.Name(),
		"prompt":            task.Prompt,
		"parent_hypotheses": hyps,
	}
}
