package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

// AnthropicGenerator sends single-turn prompts to Anthropic Claude or a
// compatible provider.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator creates a generator; baseURL overrides the API
// endpoint when set (proxies, compatible providers).
func NewAnthropicGenerator(apiKey, model, baseURL string) *AnthropicGenerator {
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Generate returns the model's text for prompt, sampled at temperature 0.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(a.model)),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Temperature: anthropic.F(0.0),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		}),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsUnion().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}

	log.Debug().
		Str("model", a.model).
		Str("stop_reason", string(resp.StopReason)).
		Int("chars", sb.Len()).
		Msg("anthropic generation")

	if sb.Len() == 0 {
		return "", fmt.Errorf("LLM returned no text (stop_reason %s)", resp.StopReason)
	}
	return sb.String(), nil
}
