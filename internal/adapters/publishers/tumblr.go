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

const tumblrAPIURL = "https://api.tumblr.com/v2"

// Tumblr creates photo or text posts on the configured blog. The client
// passed to NewTumblr must sign requests (see OAuth1Client).
type Tumblr struct {
	base
	cfg    config.TumblrConfig
	apiURL string
}

// NewTumblr creates a Tumblr publisher.
func NewTumblr(client ports.Requester, cfg config.TumblrConfig, logger zerolog.Logger) *Tumblr {
	return &Tumblr{
		base:   newBase(domain.Tumblr, "Tumblr", client, logger),
		cfg:    cfg,
		apiURL: tumblrAPIURL,
	}
}

// Publish posts the Tumblr variant.
func (t *Tumblr) Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult {
	if !t.cfg.Configured() {
		return t.fail("Tumblr API credentials not configured")
	}
	if t.cfg.BlogIdentifier == "" {
		return t.fail("Tumblr blog identifier not configured")
	}

	return t.run(func() (domain.PublishResult, error) {
		v := variants.Tumblr
		tags := v.Tags
		if len(tags) > domain.TumblrTagLimit {
			tags = tags[:domain.TumblrTagLimit]
		}

		values := url.Values{"tags": {strings.Join(tags, ",")}}
		if mediaURL != "" {
			values.Set("type", "photo")
			values.Set("caption", v.BodyHTML)
			values.Set("source", mediaURL)
		} else {
			values.Set("type", "text")
			values.Set("title", v.Title)
			values.Set("body", v.BodyHTML)
		}

		endpoint := fmt.Sprintf("%s/blog/%s/post", t.apiURL, url.PathEscape(t.cfg.BlogIdentifier))
		resp, err := t.client.Do(ctx, httpx.Form(http.MethodPost, endpoint, values, nil))
		if err != nil {
			return domain.PublishResult{}, err
		}
		if resp.StatusCode != http.StatusCreated {
			return t.apiError(resp), nil
		}

		var body struct {
			Response struct {
				ID       json.Number `json:"id"`
				IDString string      `json:"id_string"`
			} `json:"response"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return domain.PublishResult{}, fmt.Errorf("failed to decode Tumblr response: %w", err)
		}
		postID := body.Response.IDString
		if postID == "" {
			postID = body.Response.ID.String()
		}
		if postID == "" {
			return t.fail("Tumblr response did not include a post id"), nil
		}

		return domain.Posted(v.BodyHTML, mediaURL, postID, t.permalink(postID)), nil
	})
}

func (t *Tumblr) permalink(postID string) string {
	blog := t.cfg.BlogIdentifier
	if strings.Contains(blog, ".") {
		return fmt.Sprintf("https://%s/post/%s", blog, postID)
	}
	return fmt.Sprintf("https://%s.tumblr.com/post/%s", blog, postID)
}
