package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/config"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

const pinterestPinsURL = "https://api.pinterest.com/v5/pins"

// Pinterest creates a pin on the configured board. Pins need an image.
type Pinterest struct {
	base
	cfg     config.PinterestConfig
	pinsURL string
}

// NewPinterest creates a Pinterest publisher.
func NewPinterest(client ports.Requester, cfg config.PinterestConfig, logger zerolog.Logger) *Pinterest {
	return &Pinterest{
		base:    newBase(domain.Pinterest, "Pinterest", client, logger),
		cfg:     cfg,
		pinsURL: pinterestPinsURL,
	}
}

type pinMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type pinRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	BoardID     string         `json:"board_id"`
	MediaSource pinMediaSource `json:"media_source"`
}

// Publish pins the Pinterest variant.
func (p *Pinterest) Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult {
	if !p.cfg.Configured() {
		return p.fail("Pinterest API credentials not configured")
	}
	if mediaURL == "" {
		return p.fail("Pinterest requires an image")
	}

	return p.run(func() (domain.PublishResult, error) {
		description := variants.Caption(domain.Pinterest)
		req, err := httpx.JSON(http.MethodPost, p.pinsURL, pinRequest{
			Title:       domain.Truncate(variants.Pinterest.Title, domain.PinTitleLimit),
			Description: description,
			BoardID:     p.cfg.BoardID,
			MediaSource: pinMediaSource{SourceType: "image_url", URL: mediaURL},
		}, httpx.Bearer(p.cfg.AccessToken))
		if err != nil {
			return domain.PublishResult{}, err
		}

		resp, err := p.client.Do(ctx, req)
		if err != nil {
			return domain.PublishResult{}, err
		}
		if resp.StatusCode != http.StatusCreated {
			return p.apiError(resp), nil
		}

		var body struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return domain.PublishResult{}, fmt.Errorf("failed to decode Pinterest response: %w", err)
		}
		if body.ID == "" {
			return p.fail("Pinterest response did not include a pin id"), nil
		}
		permalink := body.URL
		if permalink == "" {
			permalink = "https://pinterest.com/pin/" + body.ID
		}

		return domain.Posted(description, mediaURL, body.ID, permalink), nil
	})
}
