// Package server exposes the signed webhook over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"socialpublisher/internal/core/domain"
	"socialpublisher/internal/service"
	"socialpublisher/internal/signature"
)

const shutdownTimeout = 15 * time.Second

// JobRunner processes one validated job.
type JobRunner interface {
	RunJob(ctx context.Context, job domain.IncomingJob) (domain.JobResponse, error)
}

// Verifier checks the signature of a raw request body.
type Verifier interface {
	Verify(body []byte, provided string) bool
}

// Options tunes the inbound surface.
type Options struct {
	// MaxBodyBytes caps the /job body. Zero means no cap.
	MaxBodyBytes int64
	// RatePerSec throttles /job. Zero disables the limiter.
	RatePerSec float64
}

// Server is the webhook HTTP surface.
type Server struct {
	runner   JobRunner
	verifier Verifier
	opts     Options
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// New creates a Server.
func New(runner JobRunner, verifier Verifier, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		runner:   runner,
		verifier: verifier,
		opts:     opts,
		logger:   logger.With().Str("component", "server").Logger(),
	}
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return s
}

// Handler returns the router with logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(requestIDField)
	r.Use(hlog.RemoteAddrHandler("remote"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/job", s.handleJob)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	body, err := s.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, r, http.StatusRequestEntityTooLarge, detail("Request body too large"))
			return
		}
		writeJSON(w, r, http.StatusBadRequest, detail("Invalid JSON: "+err.Error()))
		return
	}

	if !s.verifier.Verify(body, r.Header.Get(signature.Header)) {
		logger.Warn().Err(domain.ErrInvalidSignature).Msg("rejected job")
		writeJSON(w, r, http.StatusUnauthorized, detail("Invalid signature"))
		return
	}

	// Unsigned requests never reach the limiter.
	if s.limiter != nil && !s.limiter.Allow() {
		writeJSON(w, r, http.StatusTooManyRequests, detail("rate limited"))
		return
	}

	var job domain.IncomingJob
	if err := json.Unmarshal(body, &job); err != nil {
		writeJSON(w, r, http.StatusBadRequest, detail("Invalid JSON: "+err.Error()))
		return
	}
	if err := job.Validate(); err != nil {
		writeJSON(w, r, http.StatusBadRequest, detail("Invalid JSON: "+err.Error()))
		return
	}

	logger.Info().Str("run_id", job.RunID).Int64("post_id", job.Post.ID).Msg("processing job")

	resp, err := s.runner.RunJob(r.Context(), job)
	if err != nil {
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			writeJSON(w, r, http.StatusInternalServerError, map[string]string{
				"error": "Content generation failed: " + genErr.Err.Error(),
			})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	reader := io.Reader(r.Body)
	if s.opts.MaxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	return io.ReadAll(reader)
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to write response")
	}
}

// requestIDField copies chi's request id onto the request logger.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
