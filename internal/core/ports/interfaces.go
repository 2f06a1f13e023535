package ports

import (
	"context"
	"io"
	"net/http"

	"socialpublisher/internal/core/domain"
)

// Request is a fully buffered outbound HTTP request.
// The body is kept as bytes so a retry can resend it unchanged.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Requester is the HTTP transport used by every outbound integration.
type Requester interface {
	// Do sends req, retrying transient failures. A response with a
	// non-retryable status is returned without error.
	Do(ctx context.Context, req Request) (*Response, error)
}

// TextGenerator produces structured JSON text from a prompt.
type TextGenerator interface {
	// CompleteJSON sends a system and user prompt and returns the raw
	// JSON object produced by the model.
	CompleteJSON(ctx context.Context, system, user string) ([]byte, error)
}

// ImageGenerator produces an image URL from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// VariantGenerator turns a post into per-platform variants.
type VariantGenerator interface {
	// Generate always returns a complete variant set unless it fails in a
	// way no fallback can cover.
	Generate(ctx context.Context, post domain.PostData) (domain.ContentVariantSet, error)
}

// ImageResolver picks the media URL shared by every publisher of a job.
type ImageResolver interface {
	// Resolve returns "" when no image is available.
	Resolve(ctx context.Context, featuredImage, imageIdea string) string
}

// Publisher posts one platform's variant. Failures are reported in the
// result, never as an error.
type Publisher interface {
	Platform() domain.Platform
	Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult
}

// Downloader fetches remote media.
type Downloader interface {
	// Download fetches the resource at mediaURL.
	// Returns a ReadCloser that the caller must close.
	Download(ctx context.Context, mediaURL string) (io.ReadCloser, error)
}
