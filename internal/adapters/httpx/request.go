package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"socialpublisher/internal/core/ports"
)

// JSON builds a request with payload encoded as a JSON body.
func JSON(method, target string, payload any, header http.Header) (ports.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.Request{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	h := cloneHeader(header)
	h.Set("Content-Type", "application/json")
	return ports.Request{Method: method, URL: target, Header: h, Body: body}, nil
}

// Form builds a request with values encoded as an urlencoded body.
func Form(method, target string, values url.Values, header http.Header) ports.Request {
	h := cloneHeader(header)
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return ports.Request{Method: method, URL: target, Header: h, Body: []byte(values.Encode())}
}

// Bearer returns a header carrying an OAuth 2.0 bearer token.
func Bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// Success reports whether status is a 2xx code.
func Success(status int) bool {
	return status >= 200 && status < 300
}

// Snippet returns body trimmed for inclusion in error messages.
func Snippet(body []byte) string {
	const limit = 2048
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
