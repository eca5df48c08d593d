// Package analyzer selects generation winners and derives hypotheses from
// failed generations.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"darwin/internal/logger"
	"darwin/internal/model"
	"darwin/internal/oracle"
)

const excerptLimit = 500

type Analyzer struct {
	oracle oracle.Querier
}

func New(o oracle.Querier) *Analyzer {
	return &Analyzer{oracle: o}
}

// PickWinner returns the task id with the maximum evaluation score, first
// occurrence winning ties. A zero max score means no winner.
func (a *Analyzer) PickWinner(results []model.Result, evals []model.Evaluation) string {
	if len(evals) == 0 {
		return ""
	}
	best := 0
	for i := 1; i < len(evals); i++ {
		if evals[i].Score > evals[best].Score {
			best = i
		}
	}
	if evals[best].Score <= 0 {
		return ""
	}
	return evals[best].TaskID
}

type attempt struct {
	result model.Result
	eval   model.Evaluation
}

func buildAnalysisPrompt(prompt string, attempts []attempt) string {
	var sb strings.Builder
	sb.WriteString("You are analyzing the results of multiple AI coding agents that attempted the same task.\n")
	sb.WriteString("Each agent took a different approach. Analyze why the top performers did better.\n\n")
	sb.WriteString(fmt.Sprintf("Task prompt: %s\n\n", prompt))
	sb.WriteString("Results (sorted by eval score, best first):\n")

	for _, at := range attempts {
		sb.WriteString(fmt.Sprintf("\n--- Agent %s (score: %.2f) ---\n", at.result.TaskID, at.eval.Score))
		sb.WriteString(fmt.Sprintf("Status: %s\n", at.result.Status))
		sb.WriteString(fmt.Sprintf("Eval passed: %t\n", at.eval.Passed))
		sb.WriteString(fmt.Sprintf("Output excerpt: %s\n", truncate(at.result.Output, excerptLimit)))
		sb.WriteString(fmt.Sprintf("Eval details: %s\n", truncate(at.eval.Details, excerptLimit)))
	}

	sb.WriteString("\nBased on this analysis:\n")
	sb.WriteString("1. Explain WHY the winning approach was better (be specific about code strategies, not vague).\n")
	sb.WriteString("2. Identify what the losers did wrong or differently.\n")
	sb.WriteString("3. Suggest what prompt modifications could help future agents perform better.\n\n")
	sb.WriteString("Respond in JSON format:\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"analysis\": \"Why the winner succeeded (2-3 sentences)\",\n")
	sb.WriteString("    \"prompt_delta\": \"Specific prompt additions/modifications for next generation\"\n")
	sb.WriteString("}\n")
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}

// Analyze pairs results with their evaluations, summarizes the attempts
// best-first, and asks the oracle for a hypothesis. An unparseable response
// degrades into a hypothesis carrying the raw text rather than an error:
// losing one hypothesis must not abort the run.
func (a *Analyzer) Analyze(ctx context.Context, prompt string, results []model.Result, evals []model.Evaluation, generation int) (model.Hypothesis, error) {
	byID := make(map[string]model.Evaluation, len(evals))
	for _, e := range evals {
		byID[e.TaskID] = e
	}

	attempts := make([]attempt, 0, len(results))
	for _, r := range results {
		attempts = append(attempts, attempt{result: r, eval: byID[r.TaskID]})
	}
	// Stable: equal scores keep their original order.
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].eval.Score > attempts[j].eval.Score
	})

	winnerID := ""
	if len(attempts) > 0 {
		winnerID = attempts[0].result.TaskID
	}

	text, err := a.oracle.Query(ctx, buildAnalysisPrompt(prompt, attempts))
	if err != nil {
		return model.Hypothesis{}, fmt.Errorf("analysis query failed: %w", err)
	}

	var parsed struct {
		Analysis    string `json:"analysis"`
		PromptDelta string `json:"prompt_delta"`
	}
	clean := stripCodeFence(text)
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		logger.Log.Printf("[Analyzer] Non-JSON analysis response, using raw text: %v", err)
		parsed.Analysis = truncate(strings.TrimSpace(text), excerptLimit)
	}

	return model.Hypothesis{
		Generation:  generation,
		WinnerID:    winnerID,
		Analysis:    parsed.Analysis,
		PromptDelta: parsed.PromptDelta,
	}, nil
}
