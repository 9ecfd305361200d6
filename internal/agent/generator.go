// Package agent talks to the text generation service and prepares the
// context it needs (prompts, schema description).
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Yotam17/nl2sql/internal/config"
)

// Generator turns a prompt into text. Implementations sample deterministically
// and cap the output at maxTokens.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// NewGenerator builds the generator selected by cfg.LLMProvider. Each call is
// bounded by cfg.AgentTimeout seconds when it is positive.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	var g Generator
	switch cfg.LLMProvider {
	case "anthropic":
		g = NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.Model, cfg.AnthropicBaseURL)
	case "gemini":
		gg, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		g = gg
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	if cfg.AgentTimeout > 0 {
		g = WithTimeout(g, time.Duration(cfg.AgentTimeout)*time.Second)
	}
	return g, nil
}

// WithTimeout bounds every Generate call of g by d.
func WithTimeout(g Generator, d time.Duration) Generator {
	return timeoutGenerator{next: g, timeout: d}
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

func (t timeoutGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, prompt, maxTokens)
}
