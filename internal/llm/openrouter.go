package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openRouterURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout = 30 * time.Second
	roleSystem     = "system"
	roleUser       = "user"
)

// OpenRouterClient talks to OpenRouter's OpenAI-compatible chat API.
type OpenRouterClient struct {
	apiKey     string
	referer    string
	title      string
	httpClient *http.Client
	baseURL    string
}

type OpenRouterOptions struct {
	Referer string
	Title   string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func NewOpenRouterClient(apiKey string, opts OpenRouterOptions) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:  apiKey,
		referer: opts.Referer,
		title:   opts.Title,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: openRouterURL,
	}
}

func (c *OpenRouterClient) Complete(ctx context.Context, model, system, user string) (string, error) {
	return c.complete(ctx, model, system, user, nil)
}

func (c *OpenRouterClient) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	return c.complete(ctx, model, system, user, &responseFormat{Type: "json_object"})
}

func (c *OpenRouterClient) complete(ctx context.Context, model, system, user string, format *responseFormat) (string, error) {
	body := chatRequest{
		Model: model,
		Messages: []message{
			{Role: roleSystem, Content: system},
			{Role: roleUser, Content: user},
		},
		ResponseFormat: format,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	raw, err := c.doRequest(ctx, data)
	if err != nil {
		return "", err
	}
	return parseChatResponse(raw)
}

func (c *OpenRouterClient) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter api error: %s: %s", resp.Status, string(raw))
	}
	return raw, nil
}

func parseChatResponse(raw []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", resp.Error.Message)
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
