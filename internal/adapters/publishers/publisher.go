// Package publishers posts content variants to each social platform.
//
// Every publisher reports its outcome as a domain.PublishResult. Missing
// credentials, API errors, transport failures and panics all become a
// failed result; nothing escapes Publish.
package publishers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

type base struct {
	platform domain.Platform
	name     string
	client   ports.Requester
	logger   zerolog.Logger
}

func newBase(platform domain.Platform, name string, client ports.Requester, logger zerolog.Logger) base {
	return base{
		platform: platform,
		name:     name,
		client:   client,
		logger:   logger.With().Str("component", "publisher").Str("platform", string(platform)).Logger(),
	}
}

// Platform returns the platform this publisher posts to.
func (b base) Platform() domain.Platform { return b.platform }

// fail logs msg and returns it as a failed result.
func (b base) fail(msg string) domain.PublishResult {
	b.logger.Error().Msg(msg)
	return domain.Failed(msg)
}

// apiError reports a non-success response with its status and body.
func (b base) apiError(resp *ports.Response) domain.PublishResult {
	return b.fail(fmt.Sprintf("%s API error: %d - %s", b.name, resp.StatusCode, httpx.Snippet(resp.Body)))
}

// run executes fn and folds errors and panics into a failed result.
func (b base) run(fn func() (domain.PublishResult, error)) (result domain.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			result = b.fail(fmt.Sprintf("%s posting failed: panic: %v", b.name, r))
		}
	}()

	res, err := fn()
	if err != nil {
		b.logger.Error().Err(err).Msgf("%s posting failed", b.name)
		return domain.Failed(err.Error())
	}
	if res.Status == domain.StatusPosted {
		b.logger.Info().Str("post_id", res.PostID).Str("permalink", res.Permalink).Msg("posted")
	}
	return res
}

// OAuth1Client returns an *http.Client that signs every request with
// OAuth 1.0a user-context credentials.
func OAuth1Client(consumerKey, consumerSecret, token, tokenSecret string, timeout time.Duration) *http.Client {
	cfg := oauth1.NewConfig(consumerKey, consumerSecret)
	client := cfg.Client(oauth1.NoContext, oauth1.NewToken(token, tokenSecret))
	client.Timeout = timeout
	return client
}
