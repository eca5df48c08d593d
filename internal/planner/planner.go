// Package planner decomposes a high-level goal into ordered plan steps via
// the oracle.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"darwin/internal/logger"
	"darwin/internal/model"
	"darwin/internal/oracle"
)

func buildDecomposePrompt(plan string) string {
	var sb strings.Builder
	sb.WriteString("You are a software engineering planner. Given a high-level coding task, decompose it into ordered implementation steps. Each step should be independently implementable and testable.\n\n")
	sb.WriteString("Output a JSON array of steps. Each step has:\n")
	sb.WriteString("- \"index\": step number (0-based)\n")
	sb.WriteString("- \"description\": short description of what this step accomplishes\n")
	sb.WriteString("- \"prompt\": detailed prompt that a coding agent should receive to implement this step\n\n")
	sb.WriteString("Be specific in the prompt: include file paths, function signatures, and expected behavior where possible.\n\n")
	sb.WriteString("IMPORTANT: Respond ONLY with the raw JSON array. No markdown, no explanation, no code fences.\n\n")
	sb.WriteString("Task:\n")
	sb.WriteString(plan)
	return sb.String()
}

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// extractJSONArray pulls a JSON array out of a response that may carry code
// fences or surrounding prose.
func extractJSONArray(text string, out any) error {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		text = strings.Join(lines[1:], "\n")
		text = strings.TrimSpace(text)
		text = strings.TrimSuffix(text, "```")
	}

	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	if match := jsonArrayRe.FindString(text); match != "" {
		if err := json.Unmarshal([]byte(match), out); err == nil {
			return nil
		}
	}

	excerpt := text
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	return fmt.Errorf("could not extract JSON array from response: %s", excerpt)
}

type Planner struct {
	oracle oracle.Querier
}

func New(o oracle.Querier) *Planner {
	return &Planner{oracle: o}
}

// Decompose asks the oracle to split the plan into steps. A failure here is
// fatal to the run: without steps nothing can proceed.
func (p *Planner) Decompose(ctx context.Context, plan string) ([]model.PlanStep, error) {
	text, err := p.oracle.Query(ctx, buildDecomposePrompt(plan))
	if err != nil {
		return nil, fmt.Errorf("plan decomposition query failed: %w", err)
	}

	var steps []model.PlanStep
	if err := extractJSONArray(text, &steps); err != nil {
		return nil, fmt.Errorf("plan decomposition: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan decomposition produced no steps")
	}

	logger.Log.Printf("[Planner] Decomposed plan into %d step(s)", len(steps))
	return steps, nil
}
