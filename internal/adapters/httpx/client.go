package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"socialpublisher/internal/core/ports"
)

// maxResponseBytes bounds how much of a response body is buffered.
const maxResponseBytes = 32 << 20

// StatusError is returned when retries are exhausted on a retryable status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.StatusCode, e.Body)
}

// Options configures retry behaviour.
type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the wait before the first retry; it doubles each time.
	RetryDelay time.Duration
}

// Client implements ports.Requester over an *http.Client with
// exponential backoff on 5xx and 429 responses and on transport errors.
type Client struct {
	client *http.Client
	opts   Options
	logger zerolog.Logger
}

// NewClient creates a Client. The per-request timeout is the
// http.Client's Timeout.
func NewClient(client *http.Client, opts Options, logger zerolog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "httpx").Logger(),
	}
}

// NewHTTPClient returns a plain *http.Client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Do sends req and returns the first response that is not retryable.
func (c *Client) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	var (
		resp    *ports.Response
		attempt int
	)

	op := func() error {
		attempt++
		r, err := c.send(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			var buildErr *requestError
			if errors.As(err, &buildErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		if Retryable(r.StatusCode) {
			return &StatusError{StatusCode: r.StatusCode, Body: string(r.Body)}
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.opts.MaxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL).
			Int("attempt", attempt).
			Int("max_retries", c.opts.MaxRetries).
			Dur("retry_in", wait).
			Msg("http request failed, retrying")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		c.logger.Error().Err(err).Str("method", req.Method).Str("url", req.URL).
			Int("attempts", attempt).Msg("http request failed")
		return nil, fmt.Errorf("%s %s failed after %d attempt(s): %w", req.Method, req.URL, attempt, err)
	}
	return resp, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	if ceiling := c.opts.RetryDelay << c.opts.MaxRetries; ceiling > b.MaxInterval {
		b.MaxInterval = ceiling
	}
	b.Reset()
	return b
}

// requestError marks failures building the request; those are not retried.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func (c *Client) send(ctx context.Context, req ports.Request) (*ports.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &ports.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// Retryable reports whether a status code is worth retrying.
func Retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
