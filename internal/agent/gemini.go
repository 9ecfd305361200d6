package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiGenerator sends single-turn prompts through the eino Gemini chat model.
type GeminiGenerator struct {
	chat  *gemini.ChatModel
	model string
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	var temperature float32
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       modelName,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return &GeminiGenerator{chat: chat, model: modelName}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	msg, err := g.chat.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(0),
	)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	if msg == nil || msg.Content == "" {
		return "", fmt.Errorf("LLM returned no text")
	}

	log.Debug().Str("model", g.model).Int("chars", len(msg.Content)).Msg("gemini generation")
	return msg.Content, nil
}
