package llm

import (
	"context"
	"fmt"

	"github.com/conneroisu/groq-go"
)

// GroqClient is the alternate chat backend, selected with
// LLM_PROVIDER=groq.
type GroqClient struct {
	client *groq.Client
}

func NewGroqClient(apiKey string) (*GroqClient, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}
	return &GroqClient{client: client}, nil
}

func (c *GroqClient) Complete(ctx context.Context, model, system, user string) (string, error) {
	return c.complete(ctx, model, system, user, nil)
}

func (c *GroqClient) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	return c.complete(ctx, model, system, user, &groq.ChatResponseFormat{Type: "json_object"})
}

func (c *GroqClient) complete(ctx context.Context, model, system, user string, format *groq.ChatResponseFormat) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: groq.ChatModel(model),
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: system},
			{Role: groq.RoleUser, Content: user},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response")
	}
	return content, nil
}
