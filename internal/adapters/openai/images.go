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

// Images implements ports.ImageGenerator with the Images API.
type Images struct {
	requester ports.Requester
	baseURL   string
	apiKey    string
	model     string
}

// ImageOptions configures an Images client.
type ImageOptions struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewImages creates an Images client.
func NewImages(requester ports.Requester, opts ImageOptions) *Images {
	return &Images{
		requester: requester,
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		model:     opts.Model,
	}
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage returns the URL of one 1024x1024 image for prompt.
func (c *Images) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	req, err := httpx.JSON(http.MethodPost, endpoint(c.baseURL, "/images/generations"), imageRequest{
		Model:   c.model,
		Prompt:  prompt,
		Size:    "1024x1024",
		Quality: "standard",
		N:       1,
	}, authHeader(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("openai/images: %w", err)
	}

	resp, err := c.requester.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai/images: sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	var wire imageResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return "", fmt.Errorf("openai/images: decoding response: %w", err)
	}
	if len(wire.Data) == 0 || wire.Data[0].URL == "" {
		return "", errors.New("openai/images: response has no image url")
	}
	return wire.Data[0].URL, nil
}
