// Package openai talks to OpenAI-compatible chat completion and image
// generation endpoints.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/core/ports"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("openai: api key not configured")

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("openai: HTTP %d: %s", e.StatusCode, e.Message)
}

// readAPIError parses {"error":{"type":"...","message":"..."}}, falling
// back to the raw body.
func readAPIError(resp *ports.Response) error {
	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(resp.Body, &wire) == nil && wire.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Type: wire.Error.Type, Message: wire.Error.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: httpx.Snippet(resp.Body)}
}

func endpoint(baseURL, path string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + path
}

func authHeader(apiKey string) http.Header {
	return httpx.Bearer(apiKey)
}
