package generator

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Caller is the generation capability: one model, one prompt, one completion.
type Caller interface {
	Call(ctx context.Context, model, prompt string) (string, error)
}

// OpenRouterCaller talks to an OpenAI-compatible chat-completions endpoint
// (OpenRouter via AIPipe by default).
type OpenRouterCaller struct {
	client *openai.Client
}

// NewOpenRouterCaller builds a caller for the given bearer token and base URL.
func NewOpenRouterCaller(apiKey, baseURL string) *OpenRouterCaller {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouterCaller{client: openai.NewClientWithConfig(cfg)}
}

// Call performs a single chat completion bounded by ctx.
func (c *OpenRouterCaller) Call(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
