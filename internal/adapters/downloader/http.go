package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"socialpublisher/internal/core/ports"
)

// HTTPDownloader implements ports.Downloader on top of the shared transport.
type HTTPDownloader struct {
	client ports.Requester
}

// NewHTTPDownloader creates a new HTTPDownloader.
func NewHTTPDownloader(client ports.Requester) *HTTPDownloader {
	return &HTTPDownloader{client: client}
}

// Download fetches the media at the given URL.
func (d *HTTPDownloader) Download(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	resp, err := d.client.Do(ctx, ports.Request{Method: http.MethodGet, URL: mediaURL})
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.NopCloser(bytes.NewReader(resp.Body)), nil
}
