package rag

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Completer generates an answer from a system instruction and a user
// prompt. It is the answer-synthesis half of the engine.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func NewOpenAICompleter(model, apiKey, baseURL string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
