package publishers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/config"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

const (
	twitterTweetsURL = "https://api.twitter.com/2/tweets"
	twitterUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	// maxTwitterImageBytes is the simple-upload limit for images.
	maxTwitterImageBytes = 5 << 20
)

// Twitter posts tweets with OAuth 1.0a user context. The client passed to
// NewTwitter must sign requests (see OAuth1Client).
type Twitter struct {
	base
	cfg        config.TwitterConfig
	downloader ports.Downloader
	tweetsURL  string
	uploadURL  string
}

// NewTwitter creates a Twitter publisher. downloader fetches the media
// before it is uploaded.
func NewTwitter(client ports.Requester, downloader ports.Downloader, cfg config.TwitterConfig, logger zerolog.Logger) *Twitter {
	return &Twitter{
		base:       newBase(domain.Twitter, "Twitter", client, logger),
		cfg:        cfg,
		downloader: downloader,
		tweetsURL:  twitterTweetsURL,
		uploadURL:  twitterUploadURL,
	}
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

// Publish tweets the Twitter variant, attaching the media when it can be
// uploaded. A failed upload falls back to a text-only tweet.
func (t *Twitter) Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult {
	if !t.cfg.Configured() {
		return t.fail("Twitter API credentials not configured")
	}

	return t.run(func() (domain.PublishResult, error) {
		caption := variants.Caption(domain.Twitter)
		payload := tweetRequest{Text: caption}

		attached := ""
		if mediaURL != "" {
			mediaID, err := t.uploadMedia(ctx, mediaURL)
			if err != nil {
				t.logger.Warn().Err(err).Str("media", mediaURL).Msg("Twitter media upload failed, posting without media")
			} else {
				payload.Media = &tweetMedia{MediaIDs: []string{mediaID}}
				attached = mediaURL
			}
		}

		req, err := httpx.JSON(http.MethodPost, t.tweetsURL, payload, nil)
		if err != nil {
			return domain.PublishResult{}, err
		}
		resp, err := t.client.Do(ctx, req)
		if err != nil {
			return domain.PublishResult{}, err
		}
		if resp.StatusCode != http.StatusCreated {
			return t.apiError(resp), nil
		}

		var body struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return domain.PublishResult{}, fmt.Errorf("failed to decode Twitter response: %w", err)
		}
		if body.Data.ID == "" {
			return t.fail("Twitter response did not include a tweet id"), nil
		}

		return domain.Posted(caption, attached, body.Data.ID, "https://twitter.com/i/web/status/"+body.Data.ID), nil
	})
}

// uploadMedia downloads mediaURL and uploads it, returning the media id.
func (t *Twitter) uploadMedia(ctx context.Context, mediaURL string) (string, error) {
	if t.downloader == nil {
		return "", errors.New("no media downloader configured")
	}

	rc, err := t.downloader.Download(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxTwitterImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read media: %w", err)
	}
	if len(data) > maxTwitterImageBytes {
		return "", fmt.Errorf("media exceeds %d bytes", maxTwitterImageBytes)
	}

	values := url.Values{"media_data": {base64.StdEncoding.EncodeToString(data)}}
	resp, err := t.client.Do(ctx, httpx.Form(http.MethodPost, t.uploadURL, values, nil))
	if err != nil {
		return "", err
	}
	if !httpx.Success(resp.StatusCode) {
		return "", fmt.Errorf("media upload error: %d - %s", resp.StatusCode, httpx.Snippet(resp.Body))
	}

	var body struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("failed to decode media upload response: %w", err)
	}
	if body.MediaIDString == "" {
		return "", errors.New("media upload response did not include a media id")
	}
	return body.MediaIDString, nil
}
