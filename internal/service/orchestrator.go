package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/core/ports"
	"socialpublisher/internal/signature"
)

// ErrGeneration is returned when content generation fails in a way the
// fallback could not cover. The job is aborted before anything is posted.
var ErrGeneration = errors.New("content generation failed")

// GenerationError wraps the cause of a generation failure. It matches
// ErrGeneration with errors.Is.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return ErrGeneration.Error() + ": " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// TraceIDHeader carries the job trace id on the outbound callback.
const TraceIDHeader = "X-Request-ID"

// Orchestrator coordinates one publishing job: variants, image, fan-out to
// every platform and the signed callback.
type Orchestrator struct {
	variants   ports.VariantGenerator
	images     ports.ImageResolver
	publishers map[domain.Platform]ports.Publisher
	callback   ports.Requester
	secret     string
	logger     zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator. callback delivers the signed
// result payload; secret signs it.
func NewOrchestrator(
	variants ports.VariantGenerator,
	images ports.ImageResolver,
	publishers []ports.Publisher,
	callback ports.Requester,
	secret string,
	logger zerolog.Logger,
) *Orchestrator {
	byPlatform := make(map[domain.Platform]ports.Publisher, len(publishers))
	for _, p := range publishers {
		byPlatform[p.Platform()] = p
	}
	return &Orchestrator{
		variants:   variants,
		images:     images,
		publishers: byPlatform,
		callback:   callback,
		secret:     secret,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}
}

// RunJob executes a validated job. Per-platform failures are reported in
// the results; only a generation failure returns an error.
func (o *Orchestrator) RunJob(ctx context.Context, job domain.IncomingJob) (domain.JobResponse, error) {
	traceID := uuid.NewString()
	logger := o.logger.With().
		Str("trace_id", traceID).
		Str("run_id", job.RunID).
		Int64("post_id", job.Post.ID).
		Bool("dry_run", job.DryRun).
		Logger()
	start := time.Now()
	logger.Info().Msg("processing job")

	variants, err := o.generate(ctx, job.Post)
	if err != nil {
		logger.Error().Err(err).Msg("content generation failed")
		return domain.JobResponse{}, err
	}

	mediaURL := o.images.Resolve(ctx, job.Post.FeaturedImage, variants.ImageIdea)
	logger.Debug().Str("media", mediaURL).Msg("image resolved")

	results := o.publish(ctx, logger, job.DryRun, variants, mediaURL)

	// The callback must go out even if the webhook caller has hung up.
	o.sendCallback(context.WithoutCancel(ctx), logger, traceID, job, results)

	logger.Info().Dur("elapsed", time.Since(start)).Msg("job processed")
	return domain.JobResponse{Status: "processed", Results: results}, nil
}

// generate runs the variant generator, turning errors and panics into
// ErrGeneration.
func (o *Orchestrator) generate(ctx context.Context, post domain.PostData) (variants domain.ContentVariantSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &GenerationError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	variants, err = o.variants.Generate(ctx, post)
	if err != nil {
		return domain.ContentVariantSet{}, &GenerationError{Err: err}
	}
	return variants, nil
}

// publish fans out to every platform. Each goroutine writes only its own
// slot, so no locking is needed.
func (o *Orchestrator) publish(ctx context.Context, logger zerolog.Logger, dryRun bool, variants domain.ContentVariantSet, mediaURL string) domain.ResultSet {
	results := domain.NewResultSet()

	if dryRun {
		for _, p := range domain.Platforms {
			results.Set(p, domain.Skipped(variants.Caption(p)))
		}
		return results
	}

	slots := make([]domain.PublishResult, len(domain.Platforms))
	var g errgroup.Group
	for i, p := range domain.Platforms {
		g.Go(func() error {
			slots[i] = o.publishOne(ctx, logger, p, variants, mediaURL)
			return nil
		})
	}
	// publishOne folds every failure into its result, so Wait is always nil.
	g.Wait()

	for i, p := range domain.Platforms {
		results.Set(p, slots[i])
	}
	return results
}

func (o *Orchestrator) publishOne(ctx context.Context, logger zerolog.Logger, p domain.Platform, variants domain.ContentVariantSet, mediaURL string) (result domain.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("platform", string(p)).Interface("panic", r).Msg("publisher panicked")
			result = domain.Failed(fmt.Sprintf("%s posting failed: %v", p, r))
		}
	}()

	pub, ok := o.publishers[p]
	if !ok {
		return domain.Failed(fmt.Sprintf("no publisher configured for %s", p))
	}

	result = pub.Publish(ctx, variants, mediaURL)
	logger.Info().Str("platform", string(p)).Str("status", string(result.Status)).Msg("platform done")
	return result
}

// sendCallback signs and posts the results. Delivery is best-effort: any
// failure is logged and dropped.
func (o *Orchestrator) sendCallback(ctx context.Context, logger zerolog.Logger, traceID string, job domain.IncomingJob, results domain.ResultSet) {
	body, err := json.Marshal(domain.CallbackPayload{PostID: job.Post.ID, Results: results})
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode callback")
		return
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(signature.Header, signature.Sign(body, o.secret))
	header.Set(TraceIDHeader, traceID)

	resp, err := o.callback.Do(ctx, ports.Request{
		Method: http.MethodPost,
		URL:    job.CallbackURL,
		Header: header,
		Body:   body,
	})
	if err != nil {
		logger.Error().Err(err).Str("callback", job.CallbackURL).Msg("callback failed")
		return
	}
	if !httpx.Success(resp.StatusCode) {
		logger.Error().
			Int("status", resp.StatusCode).
			Str("body", httpx.Snippet(resp.Body)).
			Str("callback", job.CallbackURL).
			Msg("callback rejected")
		return
	}
	logger.Info().Int("status", resp.StatusCode).Msg("callback delivered")
}
