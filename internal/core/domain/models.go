package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Platform identifies one of the supported social networks.
type Platform string

const (
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Facebook  Platform = "facebook"
	Pinterest Platform = "pinterest"
	Tumblr    Platform = "tumblr"
)

// Platforms lists every supported platform in result order.
var Platforms = []Platform{Twitter, LinkedIn, Facebook, Pinterest, Tumblr}

// ErrInvalidSignature is returned when a webhook signature does not match.
var ErrInvalidSignature = errors.New("invalid signature")

// PostData is the canonical content item the job refers to.
type PostData struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Excerpt       string `json:"excerpt"`
	ContentHTML   string `json:"contentHtml"`
	FeaturedImage string `json:"featuredImage,omitempty"`
}

// IncomingJob is one publishing request received from the originating system.
type IncomingJob struct {
	RunID       string   `json:"runId"`
	DryRun      bool     `json:"dryRun"`
	Timestamp   string   `json:"ts"`
	CallbackURL string   `json:"callbackUrl"`
	Post        PostData `json:"post"`
}

// ValidationError reports an inbound job that decoded but is unusable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks the fields the pipeline depends on.
func (j IncomingJob) Validate() error {
	if strings.TrimSpace(j.RunID) == "" {
		return &ValidationError{Field: "runId", Reason: "required"}
	}
	if strings.TrimSpace(j.CallbackURL) == "" {
		return &ValidationError{Field: "callbackUrl", Reason: "required"}
	}
	u, err := url.Parse(j.CallbackURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "callbackUrl", Reason: "must be an absolute http(s) URL"}
	}
	if j.Post.ID <= 0 {
		return &ValidationError{Field: "post.id", Reason: "must be positive"}
	}
	if strings.TrimSpace(j.Post.Title) == "" {
		return &ValidationError{Field: "post.title", Reason: "required"}
	}
	if strings.TrimSpace(j.Post.URL) == "" {
		return &ValidationError{Field: "post.url", Reason: "required"}
	}
	return nil
}

// PinterestVariant is the pin-shaped rendering of a post.
type PinterestVariant struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TumblrVariant is the blog-shaped rendering of a post.
type TumblrVariant struct {
	Title    string   `json:"title"`
	BodyHTML string   `json:"bodyHtml"`
	Tags     []string `json:"tags"`
}

// ContentVariantSet holds one rendering per platform plus an image prompt.
type ContentVariantSet struct {
	Twitter   string           `json:"twitter"`
	LinkedIn  string           `json:"linkedin"`
	Facebook  string           `json:"facebook"`
	Pinterest PinterestVariant `json:"pinterest"`
	Tumblr    TumblrVariant    `json:"tumblr"`
	ImageIdea string           `json:"imageIdea"`
}

// Complete reports whether every platform variant and the image idea are set.
func (v ContentVariantSet) Complete() bool {
	return v.Twitter != "" &&
		v.LinkedIn != "" &&
		v.Facebook != "" &&
		v.Pinterest.Title != "" &&
		v.Pinterest.Description != "" &&
		v.Tumblr.Title != "" &&
		v.Tumblr.BodyHTML != "" &&
		v.ImageIdea != ""
}

// Caption returns the text a platform would post for this variant set.
func (v ContentVariantSet) Caption(p Platform) string {
	switch p {
	case Twitter:
		return Truncate(v.Twitter, TweetLimit)
	case LinkedIn:
		return v.LinkedIn
	case Facebook:
		return v.Facebook
	case Pinterest:
		return Truncate(v.Pinterest.Description, PinDescriptionLimit)
	case Tumblr:
		return v.Tumblr.BodyHTML
	default:
		return ""
	}
}

// Platform length limits, in characters.
const (
	TweetLimit          = 280
	PinTitleLimit       = 100
	PinDescriptionLimit = 500
	TumblrTagLimit      = 5
)

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
