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

const linkedInUGCURL = "https://api.linkedin.com/v2/ugcPosts"

// LinkedIn shares a post as the configured member through the UGC API.
type LinkedIn struct {
	base
	cfg    config.LinkedInConfig
	ugcURL string
}

// NewLinkedIn creates a LinkedIn publisher.
func NewLinkedIn(client ports.Requester, cfg config.LinkedInConfig, logger zerolog.Logger) *LinkedIn {
	return &LinkedIn{
		base:   newBase(domain.LinkedIn, "LinkedIn", client, logger),
		cfg:    cfg,
		ugcURL: linkedInUGCURL,
	}
}

type ugcText struct {
	Text string `json:"text"`
}

type ugcMedia struct {
	Status      string  `json:"status"`
	Description ugcText `json:"description"`
	Media       string  `json:"media"`
	Title       ugcText `json:"title"`
}

type ugcShareContent struct {
	ShareCommentary    ugcText    `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []ugcMedia `json:"media"`
}

type ugcPost struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent ugcShareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

// buildUGCPost wraps caption in the user-generated content envelope.
func (l *LinkedIn) buildUGCPost(caption, mediaURL string) ugcPost {
	var post ugcPost
	post.Author = "urn:li:person:" + l.cfg.UserID
	post.LifecycleState = "PUBLISHED"
	post.Visibility.MemberNetworkVisibility = "PUBLIC"

	share := ugcShareContent{
		ShareCommentary:    ugcText{Text: caption},
		ShareMediaCategory: "NONE",
		Media:              []ugcMedia{},
	}
	if mediaURL != "" {
		share.ShareMediaCategory = "IMAGE"
		share.Media = append(share.Media, ugcMedia{
			Status:      "READY",
			Description: ugcText{Text: domain.Truncate(caption, 200)},
			Media:       mediaURL,
			Title:       ugcText{Text: "Post Image"},
		})
	}
	post.SpecificContent.ShareContent = share
	return post
}

// Publish posts the LinkedIn variant.
func (l *LinkedIn) Publish(ctx context.Context, variants domain.ContentVariantSet, mediaURL string) domain.PublishResult {
	if l.cfg.AccessToken == "" {
		return l.fail("LinkedIn access token not configured")
	}
	if l.cfg.UserID == "" {
		return l.fail("LinkedIn user id not configured")
	}

	return l.run(func() (domain.PublishResult, error) {
		caption := variants.Caption(domain.LinkedIn)

		header := httpx.Bearer(l.cfg.AccessToken)
		header.Set("X-Restli-Protocol-Version", "2.0.0")
		req, err := httpx.JSON(http.MethodPost, l.ugcURL, l.buildUGCPost(caption, mediaURL), header)
		if err != nil {
			return domain.PublishResult{}, err
		}

		resp, err := l.client.Do(ctx, req)
		if err != nil {
			return domain.PublishResult{}, err
		}
		if resp.StatusCode != http.StatusCreated {
			return l.apiError(resp), nil
		}

		var body struct {
			ID string `json:"id"`
		}
		if len(resp.Body) > 0 {
			if err := json.Unmarshal(resp.Body, &body); err != nil {
				return domain.PublishResult{}, fmt.Errorf("failed to decode LinkedIn response: %w", err)
			}
		}
		postID := body.ID
		if postID == "" {
			postID = resp.Header.Get("X-RestLi-Id")
		}
		if postID == "" {
			return l.fail("LinkedIn response did not include a post id"), nil
		}

		return domain.Posted(caption, mediaURL, postID, "https://www.linkedin.com/feed/update/"+postID), nil
	})
}
