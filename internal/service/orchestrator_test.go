package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/adapters/publishers"
	"socialpublisher/internal/config"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
	"socialpublisher/internal/signature"
)

const testSecret = "shared-secret"

type fakeGenerator struct {
	variants domain.ContentVariantSet
	err      error
	panics   bool
}

func (g fakeGenerator) Generate(ctx context.Context, post domain.PostData) (domain.ContentVariantSet, error) {
	if g.panics {
		panic("generator exploded")
	}
	return g.variants, g.err
}

type fakeResolver struct {
	media string
	calls atomic.Int32
}

func (r *fakeResolver) Resolve(ctx context.Context, featured, idea string) string {
	r.calls.Add(1)
	if featured != "" {
		return featured
	}
	return r.media
}

type fakePublisher struct {
	platform domain.Platform
	result   domain.PublishResult
	panics   bool

	mu    sync.Mutex
	calls int
	media string
}

func (p *fakePublisher) Platform() domain.Platform { return p.platform }

func (p *fakePublisher) Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult {
	p.mu.Lock()
	p.calls++
	p.media = mediaURL
	p.mu.Unlock()
	if p.panics {
		panic("publisher exploded")
	}
	return p.result
}

func (p *fakePublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// callbackServer records callbacks and answers with status.
type callbackServer struct {
	*httptest.Server
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
}

func newCallbackServer(t *testing.T, status int) *callbackServer {
	t.Helper()
	s := &callbackServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies = append(s.bodies, body)
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *callbackServer) Last() ([]byte, http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return nil, nil
	}
	return s.bodies[len(s.bodies)-1], s.headers[len(s.headers)-1]
}

func (s *callbackServer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func testClient() *httpx.Client {
	return httpx.NewClient(httpx.NewHTTPClient(5*time.Second), httpx.Options{MaxRetries: 1, RetryDelay: time.Millisecond}, zerolog.Nop())
}

func testVariants() domain.ContentVariantSet {
	return domain.ContentVariantSet{
		Twitter:   strings.Repeat("t", 300),
		LinkedIn:  "linkedin copy https://x/42",
		Facebook:  "facebook copy https://x/42",
		Pinterest: domain.PinterestVariant{Title: "Pin", Description: "pin description https://x/42"},
		Tumblr:    domain.TumblrVariant{Title: "Tumblr", BodyHTML: "<p>tumblr</p>", Tags: []string{"go"}},
		ImageIdea: "an idea",
	}
}

func testJob(callbackURL string, dryRun bool) domain.IncomingJob {
	return domain.IncomingJob{
		RunID:       "run-1",
		DryRun:      dryRun,
		Timestamp:   "2024-01-01T00:00:00Z",
		CallbackURL: callbackURL,
		Post: domain.PostData{
			ID:    42,
			Title: "Hello",
			URL:   "https://x/42",
		},
	}
}

func posted(platform domain.Platform) *fakePublisher {
	return &fakePublisher{
		platform: platform,
		result:   domain.Posted(string(platform)+" caption", "", string(platform)+"-id", "https://"+string(platform)+"/p"),
	}
}

func allPublishers() []*fakePublisher {
	out := make([]*fakePublisher, 0, len(domain.Platforms))
	for _, p := range domain.Platforms {
		out = append(out, posted(p))
	}
	return out
}

func asPorts(pubs []*fakePublisher) []ports.Publisher {
	out := make([]ports.Publisher, len(pubs))
	for i, p := range pubs {
		out[i] = p
	}
	return out
}

func TestRunJobDryRunSkipsPublishers(t *testing.T) {
	t.Parallel()

	cb := newCallbackServer(t, http.StatusOK)
	pubs := allPublishers()
	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, &fakeResolver{}, asPorts(pubs), testClient(), testSecret, zerolog.Nop())

	resp, err := o.RunJob(context.Background(), testJob(cb.URL, true))
	require.NoError(t, err)
	assert.Equal(t, "processed", resp.Status)

	v := testVariants()
	for _, p := range domain.Platforms {
		r := resp.Results.Get(p)
		assert.Equal(t, domain.StatusSkipped, r.Status, p)
		assert.Equal(t, v.Caption(p), r.Caption, p)
		assert.Empty(t, r.PostID, p)
	}
	assert.Len(t, resp.Results.Get(domain.Twitter).Caption, domain.TweetLimit)
	assert.Equal(t, v.Pinterest.Description, resp.Results.Get(domain.Pinterest).Caption)
	assert.Equal(t, v.Tumblr.BodyHTML, resp.Results.Get(domain.Tumblr).Caption)

	for _, p := range pubs {
		assert.Zero(t, p.Calls(), p.platform)
	}
	assert.Equal(t, 1, cb.Count())
}

func TestRunJobPostsAndSendsSignedCallback(t *testing.T) {
	t.Parallel()

	cb := newCallbackServer(t, http.StatusOK)
	pubs := allPublishers()
	resolver := &fakeResolver{media: "https://img/generated.png"}
	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, resolver, asPorts(pubs), testClient(), testSecret, zerolog.Nop())

	resp, err := o.RunJob(context.Background(), testJob(cb.URL, false))
	require.NoError(t, err)

	for _, p := range domain.Platforms {
		assert.Equal(t, domain.StatusPosted, resp.Results.Get(p).Status, p)
	}
	for _, p := range pubs {
		assert.Equal(t, 1, p.Calls())
		assert.Equal(t, "https://img/generated.png", p.media)
	}
	assert.EqualValues(t, 1, resolver.calls.Load())
	assert.Equal(t, 1, cb.Count())

	body, header := cb.Last()
	require.NotNil(t, body)
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.NotEmpty(t, header.Get(TraceIDHeader))
	assert.True(t, signature.Verify(body, header.Get(signature.Header), testSecret))

	var payload domain.CallbackPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.EqualValues(t, 42, payload.PostID)
	assert.Equal(t, resp.Results, payload.Results)
}

func TestRunJobCallbackKeyOrder(t *testing.T) {
	t.Parallel()

	cb := newCallbackServer(t, http.StatusOK)
	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, &fakeResolver{}, nil, testClient(), testSecret, zerolog.Nop())

	resp, err := o.RunJob(context.Background(), testJob(cb.URL, false))
	require.NoError(t, err)

	body, _ := cb.Last()
	s := string(body)
	last := -1
	for _, p := range domain.Platforms {
		idx := strings.Index(s, `"`+string(p)+`":`)
		require.Greater(t, idx, last, "key %s out of order", p)
		last = idx
	}

	// No publishers were wired, so every platform still reports a failure.
	for _, p := range domain.Platforms {
		r := resp.Results.Get(p)
		assert.Equal(t, domain.StatusFailed, r.Status)
		assert.Contains(t, r.Error, "no publisher configured")
	}
}

func TestRunJobIsolatesPlatformFailures(t *testing.T) {
	t.Parallel()

	cb := newCallbackServer(t, http.StatusOK)
	pubs := allPublishers()
	pubs[1].result = domain.Failed("LinkedIn API error: 503 - unavailable")
	pubs[2].panics = true

	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, &fakeResolver{}, asPorts(pubs), testClient(), testSecret, zerolog.Nop())

	resp, err := o.RunJob(context.Background(), testJob(cb.URL, false))
	require.NoError(t, err)
	assert.Equal(t, "processed", resp.Status)

	assert.Equal(t, domain.StatusPosted, resp.Results.Twitter.Status)
	assert.Equal(t, domain.StatusFailed, resp.Results.LinkedIn.Status)
	assert.Contains(t, resp.Results.LinkedIn.Error, "503")
	assert.Equal(t, domain.StatusFailed, resp.Results.Facebook.Status)
	assert.Contains(t, resp.Results.Facebook.Error, "publisher exploded")
	assert.Equal(t, domain.StatusPosted, resp.Results.Pinterest.Status)
	assert.Equal(t, domain.StatusPosted, resp.Results.Tumblr.Status)
}

func TestRunJobGenerationFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  fakeGenerator
	}{
		{name: "error", gen: fakeGenerator{err: errors.New("boom")}},
		{name: "panic", gen: fakeGenerator{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cb := newCallbackServer(t, http.StatusOK)
			pubs := allPublishers()
			resolver := &fakeResolver{}
			o := NewOrchestrator(tt.gen, resolver, asPorts(pubs), testClient(), testSecret, zerolog.Nop())

			_, err := o.RunJob(context.Background(), testJob(cb.URL, false))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGeneration)
			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.NotEmpty(t, genErr.Err.Error())

			assert.Zero(t, resolver.calls.Load())
			for _, p := range pubs {
				assert.Zero(t, p.Calls())
			}
			assert.Zero(t, cb.Count())
		})
	}
}

func TestRunJobCallbackFailureDoesNotFailJob(t *testing.T) {
	t.Parallel()

	cb := newCallbackServer(t, http.StatusInternalServerError)
	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, &fakeResolver{}, asPorts(allPublishers()), testClient(), testSecret, zerolog.Nop())

	resp, err := o.RunJob(context.Background(), testJob(cb.URL, false))
	require.NoError(t, err)
	assert.Equal(t, "processed", resp.Status)
	// One attempt plus one retry.
	assert.Equal(t, 2, cb.Count())

	unreachable := testJob("http://127.0.0.1:1/callback", false)
	resp, err = o.RunJob(context.Background(), unreachable)
	require.NoError(t, err)
	assert.Equal(t, "processed", resp.Status)
}

func TestRunJobFeaturedImageWins(t *testing.T) {
	t.Parallel()

	cb := newCallbackServer(t, http.StatusOK)
	pubs := allPublishers()
	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, &fakeResolver{media: "https://img/generated.png"}, asPorts(pubs), testClient(), testSecret, zerolog.Nop())

	job := testJob(cb.URL, false)
	job.Post.FeaturedImage = "https://img/featured.jpg"
	_, err := o.RunJob(context.Background(), job)
	require.NoError(t, err)

	for _, p := range pubs {
		assert.Equal(t, "https://img/featured.jpg", p.media)
	}
}

func TestRunJobFacebookOutageIsIsolated(t *testing.T) {
	t.Parallel()

	var graphHits atomic.Int32
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "upstream unavailable")
	}))
	t.Cleanup(graph.Close)

	cb := newCallbackServer(t, http.StatusOK)
	facebook := publishers.NewFacebook(testClient(), config.FacebookConfig{
		PageAccessToken: "page-token",
		PageID:          "1234",
		GraphURL:        graph.URL,
	}, zerolog.Nop())

	pubs := []ports.Publisher{posted(domain.Twitter), posted(domain.LinkedIn), facebook, posted(domain.Pinterest), posted(domain.Tumblr)}
	o := NewOrchestrator(fakeGenerator{variants: testVariants()}, &fakeResolver{}, pubs, testClient(), testSecret, zerolog.Nop())

	resp, err := o.RunJob(context.Background(), testJob(cb.URL, false))
	require.NoError(t, err)
	assert.Equal(t, "processed", resp.Status)

	assert.Equal(t, domain.StatusFailed, resp.Results.Facebook.Status)
	assert.Contains(t, resp.Results.Facebook.Error, "503")
	// One attempt plus one retry.
	assert.EqualValues(t, 2, graphHits.Load())
	for _, p := range []domain.Platform{domain.Twitter, domain.LinkedIn, domain.Pinterest, domain.Tumblr} {
		assert.Equal(t, domain.StatusPosted, resp.Results.Get(p).Status, p)
	}

	require.Equal(t, 1, cb.Count())
	body, header := cb.Last()
	assert.True(t, signature.Verify(body, header.Get(signature.Header), testSecret))
	var payload domain.CallbackPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, domain.StatusFailed, payload.Results.Facebook.Status)
}
