package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpublisher/internal/core/ports"
)

func newTestClient(retries int, delay time.Duration) *Client {
	return NewClient(NewHTTPClient(5*time.Second), Options{MaxRetries: retries, RetryDelay: delay}, zerolog.Nop())
}

func TestDoReturnsSuccessfulResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"hello":"world"}`, string(body))
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	t.Cleanup(srv.Close)

	req, err := JSON(http.MethodPost, srv.URL, map[string]string{"hello": "world"}, nil)
	require.NoError(t, err)

	resp, err := newTestClient(3, time.Millisecond).Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id":"1"}`, string(resp.Body))
	assert.Equal(t, "yes", resp.Header.Get("X-Test"))
}

func TestDoRetriesServerErrorsWithGrowingDelay(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(3, 20*time.Millisecond).Do(context.Background(), ports.Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "4 attempt(s)")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 4)
	first := times[1].Sub(times[0])
	last := times[3].Sub(times[2])
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.GreaterOrEqual(t, last, 80*time.Millisecond)
	assert.Greater(t, last, first)
}

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	resp, err := newTestClient(3, time.Millisecond).Do(context.Background(), ports.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad"))
	}))
	t.Cleanup(srv.Close)

	resp, err := newTestClient(3, time.Millisecond).Do(context.Background(), ports.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad", string(resp.Body))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoWithoutRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(0, time.Millisecond).Do(context.Background(), ports.Request{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoInvalidRequestIsNotRetried(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(3, time.Second).Do(context.Background(), ports.Request{Method: "BAD METHOD", URL: "http://example.invalid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")
	assert.Contains(t, err.Error(), "1 attempt(s)")
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(10, time.Second).Do(ctx, ports.Request{URL: srv.URL})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFormAndBearerHelpers(t *testing.T) {
	t.Parallel()

	req := Form(http.MethodPost, "http://x", url.Values{"message": {"hi there"}}, Bearer("tok"))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "message=hi+there", string(req.Body))

	assert.True(t, Success(201))
	assert.False(t, Success(301))
	assert.True(t, Retryable(503))
	assert.True(t, Retryable(429))
	assert.False(t, Retryable(404))
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short body", Snippet([]byte("  short body\n")))

	ascii := Snippet([]byte(strings.Repeat("a", 3000)))
	assert.Equal(t, strings.Repeat("a", 2048)+"...", ascii)

	// "a" then two-byte runes puts byte 2048 in the middle of a rune.
	multi := Snippet([]byte("a" + strings.Repeat("é", 2000)))
	assert.True(t, utf8.ValidString(multi))
	assert.True(t, strings.HasSuffix(multi, "é..."))
	assert.LessOrEqual(t, len(multi), 2048+len("..."))
}
