// Package agent abstracts the AI coding agent backend. Adding a vendor
// means registering a new implementation; orchestration code never
// branches on vendor names.
package agent

import (
	"fmt"
	"sort"
	"sync"

	"darwin/internal/model"
)

// Vendor builds the prompt variants and the task.json payload for one
// agent backend.
type Vendor interface {
	Name() string

	// BuildPrompt renders a prompt variant. It must be a pure function of
	// its arguments: the same (base, hypotheses, variantIndex) always
	// yields the same prompt, and different variant indices diversify the
	// population.
	BuildPrompt(basePrompt string, hypotheses []model.Hypothesis, variantIndex int) string

	// BuildTaskConfig returns the task.json content the in-job agent
	// process reads from its workspace.
	BuildTaskConfig(task model.Task) map[string]any
}

var (
	mu      sync.RWMutex
	vendors = map[string]func() Vendor{}
)

func Register(name string, factory func() Vendor) {
	mu.Lock()
	defer mu.Unlock()
	vendors[name] = factory
}

func Lookup(name string) (Vendor, error) {
	mu.RLock()
	factory, ok := vendors[name]
	mu.RUnlock()
	if !ok {
		mu.RLock()
		names := make([]string, 0, len(vendors))
		for n := range vendors {
			names = append(names, n)
		}
		mu.RUnlock()
		sort.Strings(names)
		return nil, fmt.Errorf("unknown agent vendor %q (available: %v)", name, names)
	}
	return factory(), nil
}
