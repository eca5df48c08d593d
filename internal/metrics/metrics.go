package metrics

import "time"

type TaskMetrics struct {
	TaskID     string  `json:"task_id"`
	Status     string  `json:"status"`
	DurationMs int64   `json:"duration_ms"`
	Score      float64 `json:"score,omitempty"`
}

type GenerationMetrics struct {
	StepIndex  int           `json:"step_index"`
	Generation int           `json:"generation"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Tasks      []TaskMetrics `json:"tasks"`
}

// Compute derived fields for a generation.
func (g *GenerationMetrics) Finalize() {
	g.DurationMs = g.End.Sub(g.Start).Milliseconds()
}
