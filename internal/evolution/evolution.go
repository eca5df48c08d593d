// Package evolution builds task populations: diverse prompt variants for
// generation zero, hypothesis-biased mutations for every generation after.
package evolution

import (
	"fmt"

	"github.com/google/uuid"

	"darwin/internal/agent"
	"darwin/internal/model"
)

type Engine struct {
	vendor agent.Vendor
}

func NewEngine(vendor agent.Vendor) *Engine {
	return &Engine{vendor: vendor}
}

func newTaskID() string {
	return fmt.Sprintf("agent-%s", uuid.New().String()[:8])
}

// CreateInitialPopulation builds generation zero: populationSize tasks with
// pairwise-distinct ids and diversified prompts, no parent hypotheses.
func (e *Engine) CreateInitialPopulation(basePrompt string, stepIndex, populationSize int) []model.Task {
	tasks := make([]model.Task, 0, populationSize)
	for i := 0; i < populationSize; i++ {
		tasks = append(tasks, model.Task{
			ID:         newTaskID(),
			Generation: 0,
			StepIndex:  stepIndex,
			Prompt:     e.vendor.BuildPrompt(basePrompt, nil, i),
		})
	}
	return tasks
}

// Evolve builds the next generation. Every task carries the full hypothesis
// list as its parent context, and every prompt incorporates the feedback.
func (e *Engine) Evolve(basePrompt string, stepIndex, generation, populationSize int, hypotheses []model.Hypothesis) []model.Task {
	tasks := make([]model.Task, 0, populationSize)
	for i := 0; i < populationSize; i++ {
		parents := make([]model.Hypothesis, len(hypotheses))
		copy(parents, hypotheses)
		tasks = append(tasks, model.Task{
			ID:               newTaskID(),
			Generation:       generation,
			StepIndex:        stepIndex,
			Prompt:           e.vendor.BuildPrompt(basePrompt, hypotheses, i),
			ParentHypotheses: parents,
		})
	}
	return tasks
}
