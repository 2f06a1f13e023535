package publishers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

func (c capturedRequest) Form() url.Values {
	v, _ := url.ParseQuery(c.Body)
	return v
}

type reply struct {
	status int
	body   string
	header map[string]string
}

// apiServer records every request and answers from a per-path table.
type apiServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
	replies  map[string]reply
}

func newAPIServer(t *testing.T, replies map[string]reply) *apiServer {
	t.Helper()
	s := &apiServer{replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		rep, ok := s.replies[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		for k, v := range rep.header {
			w.Header().Set(k, v)
		}
		w.WriteHeader(rep.status)
		_, _ = io.WriteString(w, rep.body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) Requests() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedRequest(nil), s.requests...)
}

func (s *apiServer) RequestsTo(path string) []capturedRequest {
	var out []capturedRequest
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func testClient() *httpx.Client {
	return httpx.NewClient(httpx.NewHTTPClient(5*time.Second), httpx.Options{MaxRetries: 2, RetryDelay: time.Millisecond}, zerolog.Nop())
}

func testVariants() domain.ContentVariantSet {
	return domain.ContentVariantSet{
		Twitter:  "Hello #go https://x/42",
		LinkedIn: "A professional hello. https://x/42",
		Facebook: "Hi friends! https://x/42",
		Pinterest: domain.PinterestVariant{
			Title:       "Hello",
			Description: "Pin description https://x/42 hello, go, world",
		},
		Tumblr: domain.TumblrVariant{
			Title:    "Hello",
			BodyHTML: "<p>Hello</p><a href='https://x/42'>more</a>",
			Tags:     []string{"a", "b", "c", "d", "e", "f", "g"},
		},
		ImageIdea: "hello image",
	}
}

type panicRequester struct{}

func (panicRequester) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	panic("transport exploded")
}
