package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/core/ports"
)

// Chat implements ports.TextGenerator with the Chat Completions API in
// JSON-object response mode.
type Chat struct {
	requester   ports.Requester
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

// ChatOptions configures a Chat.
type ChatOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// NewChat creates a Chat.
func NewChat(requester ports.Requester, opts ChatOptions) *Chat {
	return &Chat{
		requester:   requester,
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// CompleteJSON returns the JSON object the model produced for the prompts.
func (c *Chat) CompleteJSON(ctx context.Context, system, user string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := httpx.JSON(http.MethodPost, endpoint(c.baseURL, "/chat/completions"), chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}, authHeader(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("openai/chat: %w", err)
	}

	resp, err := c.requester.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai/chat: sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var wire chatResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("openai/chat: decoding response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return nil, errors.New("openai/chat: response has no choices")
	}

	content := wire.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		return nil, errors.New("openai/chat: message content is not valid JSON")
	}
	return []byte(content), nil
}
