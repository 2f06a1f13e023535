package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/config"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0"

// Facebook posts to a page feed, or to the page photos when media is present.
type Facebook struct {
	base
	cfg      config.FacebookConfig
	graphURL string
}

// NewFacebook creates a Facebook publisher. cfg.GraphURL, when set,
// replaces the default Graph API base URL.
func NewFacebook(client ports.Requester, cfg config.FacebookConfig, logger zerolog.Logger) *Facebook {
	graphURL := facebookGraphURL
	if cfg.GraphURL != "" {
		graphURL = strings.TrimRight(cfg.GraphURL, "/")
	}
	return &Facebook{
		base:     newBase(domain.Facebook, "Facebook", client, logger),
		cfg:      cfg,
		graphURL: graphURL,
	}
}

// Publish posts the Facebook variant.
func (f *Facebook) Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult {
	if !f.cfg.Configured() {
		return f.fail("Facebook API credentials not configured")
	}

	return f.run(func() (domain.PublishResult, error) {
		caption := variants.Caption(domain.Facebook)
		values := url.Values{
			"message":      {caption},
			"access_token": {f.cfg.PageAccessToken},
		}

		endpoint := fmt.Sprintf("%s/%s/feed", f.graphURL, url.PathEscape(f.cfg.PageID))
		if mediaURL != "" {
			// Facebook fetches the image from the URL itself.
			endpoint = fmt.Sprintf("%s/%s/photos", f.graphURL, url.PathEscape(f.cfg.PageID))
			values.Set("url", mediaURL)
		}

		resp, err := f.client.Do(ctx, httpx.Form(http.MethodPost, endpoint, values, nil))
		if err != nil {
			return domain.PublishResult{}, err
		}
		if resp.StatusCode != http.StatusOK {
			return f.apiError(resp), nil
		}

		var body struct {
			ID     string `json:"id"`
			PostID string `json:"post_id"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return domain.PublishResult{}, fmt.Errorf("failed to decode Facebook response: %w", err)
		}
		postID := body.ID
		if postID == "" {
			postID = body.PostID
		}
		if postID == "" {
			return f.fail("Facebook response did not include a post id"), nil
		}

		return domain.Posted(caption, mediaURL, postID, "https://facebook.com/"+postID), nil
	})
}
