// Package content derives per-platform post variants from an article.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

// maxContentChars caps the article body sent to the model.
const maxContentChars = 6000

const systemPrompt = `You format social media copy. Return strict JSON matching this schema:
{
  "twitter": "string (<= 280 chars, 1-2 relevant hashtags)",
  "linkedin": "string (professional tone, 1-2 sentences + link)",
  "facebook": "string (friendly tone, can be longer)",
  "pinterest": {"title": "string (<= 100 chars)", "description": "string (100-300 chars)"},
  "tumblr": {"title": "string", "bodyHtml": "string (can include HTML)", "tags": ["string"]},
  "imageIdea": "string (prompt for image generation)"
}

Rules:
- Twitter: <= 280 chars, include 1-2 relevant hashtags, can use 1 emoji max
- LinkedIn: Professional tone, value-forward, 1-2 sentences + link, no emojis
- Facebook: Friendly tone, can be longer, up to 2 emojis
- Pinterest: Description should be 100-300 chars, include 3 discovery keywords at end
- Tumblr: Can include HTML formatting, relevant tags
- Use the provided article URL exactly once per platform
- Avoid clickbait, maintain authentic voice`

var errIncomplete = errors.New("generated variants are incomplete")

// Generator asks a text model for variants and falls back to fixed
// templates whenever the model cannot deliver a complete set.
type Generator struct {
	provider string
	text     ports.TextGenerator
	logger   zerolog.Logger
}

// NewGenerator creates a Generator. text may be nil, in which case only
// the fallback templates are used. Only the "openai" provider is supported.
func NewGenerator(provider string, text ports.TextGenerator, logger zerolog.Logger) *Generator {
	return &Generator{
		provider: provider,
		text:     text,
		logger:   logger.With().Str("component", "content").Logger(),
	}
}

// Generate returns a complete variant set for post. The error is always
// nil; the fallback covers every model failure.
func (g *Generator) Generate(ctx context.Context, post domain.PostData) (domain.ContentVariantSet, error) {
	variants, err := g.fromModel(ctx, post)
	if err != nil {
		g.logger.Error().Err(err).Int64("post_id", post.ID).Msg("llm generation failed, using fallback")
		return Fallback(post.Title, post.URL, post.Excerpt), nil
	}
	return variants, nil
}

func (g *Generator) fromModel(ctx context.Context, post domain.PostData) (domain.ContentVariantSet, error) {
	if !strings.EqualFold(g.provider, "openai") {
		return domain.ContentVariantSet{}, fmt.Errorf("unsupported LLM provider: %s", g.provider)
	}
	if g.text == nil {
		return domain.ContentVariantSet{}, errors.New("no text generator configured")
	}

	raw, err := g.text.CompleteJSON(ctx, systemPrompt, UserPrompt(post))
	if err != nil {
		return domain.ContentVariantSet{}, err
	}

	var variants domain.ContentVariantSet
	if err := json.Unmarshal(raw, &variants); err != nil {
		return domain.ContentVariantSet{}, fmt.Errorf("failed to decode variants: %w", err)
	}
	if !variants.Complete() {
		return domain.ContentVariantSet{}, errIncomplete
	}
	return variants, nil
}

// UserPrompt renders the article block sent to the model.
func UserPrompt(post domain.PostData) string {
	return fmt.Sprintf("Article:\nTitle: %s\nURL: %s\nExcerpt: %s\nContent: %s",
		post.Title, post.URL, post.Excerpt, domain.Truncate(post.ContentHTML, maxContentChars))
}

// Fallback builds every variant from title, url and excerpt with fixed
// templates. It makes no network call.
func Fallback(title, url, excerpt string) domain.ContentVariantSet {
	short := excerpt
	if len([]rune(excerpt)) > 100 {
		short = domain.Truncate(excerpt, 100) + "..."
	}

	return domain.ContentVariantSet{
		Twitter:  fmt.Sprintf("%s... %s", domain.Truncate(title, 200), url),
		LinkedIn: fmt.Sprintf("%s\n\n%s\n\nRead more: %s", title, short, url),
		Facebook: fmt.Sprintf("Check out our new post: %s\n\n%s\n\n%s", title, short, url),
		Pinterest: domain.PinterestVariant{
			Title:       domain.Truncate(title, 100),
			Description: fmt.Sprintf("%s | Read more: %s", short, url),
		},
		Tumblr: domain.TumblrVariant{
			Title:    title,
			BodyHTML: fmt.Sprintf("<p>%s</p><p><a href='%s'>Read more</a></p>", short, url),
			Tags:     []string{"blog", "article"},
		},
		ImageIdea: "Visual representation of: " + title,
	}
}
