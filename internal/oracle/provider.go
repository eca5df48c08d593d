// Package oracle wraps the language model used for plan decomposition and
// failure analysis behind a single fallible query interface.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotInitialized = errors.New("oracle: provider not initialized")

type Config struct {
	Backend    string
	Model      string
	OllamaHost string
}

type Provider interface {
	Init(cfg Config) error
	DefaultModel() string
	AllowedModelOrDefault(model string) string
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Querier is what the orchestration layers depend on. Responses may be
// plain text, JSON, or fenced JSON; callers do their own lenient parsing.
type Querier interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Client binds a provider to a model and a per-query timeout.
type Client struct {
	provider Provider
	model    string
	timeout  time.Duration
}

func NewClient(cfg Config, timeout time.Duration) (*Client, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	var p Provider
	switch backend {
	case "ollama":
		p = &ollamaProvider{}
	case "gemini":
		p = &geminiProvider{}
	default:
		return nil, fmt.Errorf("oracle: unsupported backend: %s", backend)
	}
	if err := p.Init(cfg); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		provider: p,
		model:    p.AllowedModelOrDefault(cfg.Model),
		timeout:  timeout,
	}, nil
}

func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.provider == nil {
		return "", ErrNotInitialized
	}
	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.Generate(qctx, prompt, c.model)
}
