// Package images chooses the media attached to a job's posts.
package images

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
)

// maxPromptChars caps the prompt sent to the image model.
const maxPromptChars = 1000

// Resolver picks a featured image, else a generated one, else nothing.
type Resolver struct {
	generator ports.ImageGenerator
	logger    zerolog.Logger
}

// NewResolver creates a Resolver. A nil generator disables generation.
func NewResolver(generator ports.ImageGenerator, logger zerolog.Logger) *Resolver {
	return &Resolver{
		generator: generator,
		logger:    logger.With().Str("component", "images").Logger(),
	}
}

// Resolve returns the media URL for a job, or "" when there is none.
// Generation failures are logged and treated as no image.
func (r *Resolver) Resolve(ctx context.Context, featuredImage, imageIdea string) string {
	if strings.TrimSpace(featuredImage) != "" {
		r.logger.Info().Str("url", featuredImage).Msg("using featured image")
		return featuredImage
	}

	if strings.TrimSpace(imageIdea) == "" || r.generator == nil {
		return ""
	}

	url, err := r.generator.GenerateImage(ctx, domain.Truncate(imageIdea, maxPromptChars))
	if err != nil {
		r.logger.Error().Err(err).Msg("image generation failed")
		return ""
	}
	r.logger.Info().Str("url", url).Msg("generated image")
	return url
}
