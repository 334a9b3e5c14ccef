package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ChatClient produces one completion for a system/user prompt pair.
// The engine stages are written against this interface so tests can
// run the full pipeline with a stub.
type ChatClient interface {
	Chat(ctx context.Context, model, system, user string) (string, error)
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint
// (DeepSeek, OpenAI, local gateways)
type OpenAIClient struct {
	client *resty.Client
}

// NewOpenAIClient creates a chat client for the given endpoint
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetAuthToken(apiKey)
	client.SetTimeout(120 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(2 * time.Second)

	return &OpenAIClient{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Chat implements ChatClient
func (c *OpenAIClient) Chat(ctx context.Context, model, system, user string) (string, error) {
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("chat completion rejected: %s", out.Error.Message)
		}
		return "", fmt.Errorf("chat completion rejected: status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
