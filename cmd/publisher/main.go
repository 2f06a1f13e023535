package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"socialpublisher/internal/adapters/downloader"
	"socialpublisher/internal/adapters/httpx"
	"socialpublisher/internal/adapters/openai"
	"socialpublisher/internal/adapters/publishers"
	"socialpublisher/internal/config"
	"socialpublisher/internal/content"
	"socialpublisher/internal/core/ports"
	"socialpublisher/internal/images"
	"socialpublisher/internal/logging"
	"socialpublisher/internal/server"
	"socialpublisher/internal/service"
	"socialpublisher/internal/signature"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	configFile := pflag.StringP("config", "c", "", "Path to YAML config file")
	envFile := pflag.String("env-file", ".env", "Path to .env file")
	port := pflag.IntP("port", "p", 0, "Listen port (overrides PORT)")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("social-publisher %s\n", version)
		return
	}

	cfg, err := config.Load(config.Options{File: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Debug:   cfg.Server.Debug,
		Service: "social-publisher",
	})
	logger.Info().Str("version", version).Int("port", cfg.Server.Port).Msg("starting social publisher")

	srv := server.New(
		buildOrchestrator(cfg, logger),
		signature.NewVerifier(cfg.Server.WebhookSecret, logger),
		server.Options{MaxBodyBytes: cfg.Server.MaxBodyBytes, RatePerSec: cfg.Server.JobRatePerSec},
		logger,
	)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	if err := srv.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.Server.Port)); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// buildOrchestrator wires every adapter from cfg.
func buildOrchestrator(cfg config.Config, logger zerolog.Logger) *service.Orchestrator {
	retry := httpx.Options{MaxRetries: cfg.HTTP.MaxRetries, RetryDelay: cfg.HTTP.RetryDelay}
	plain := httpx.NewClient(httpx.NewHTTPClient(cfg.HTTP.Timeout), retry, logger)

	var text ports.TextGenerator
	if cfg.LLM.APIKey != "" {
		text = openai.NewChat(plain, openai.ChatOptions{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		})
	} else {
		logger.Warn().Msg("LLM_API_KEY not set, using fallback content templates")
	}

	var imageGen ports.ImageGenerator
	switch {
	case cfg.Image.APIKey == "":
		logger.Warn().Msg("IMAGE_API_KEY not set, image generation disabled")
	case !strings.EqualFold(cfg.Image.Provider, "openai"):
		logger.Warn().Str("provider", cfg.Image.Provider).Msg("unsupported image provider, image generation disabled")
	default:
		imageGen = openai.NewImages(plain, openai.ImageOptions{
			BaseURL: cfg.Image.BaseURL,
			APIKey:  cfg.Image.APIKey,
			Model:   cfg.Image.Model,
		})
	}

	twitterClient := httpx.NewClient(publishers.OAuth1Client(
		cfg.Twitter.APIKey, cfg.Twitter.APISecret, cfg.Twitter.AccessToken, cfg.Twitter.AccessSecret, cfg.HTTP.Timeout,
	), retry, logger)
	tumblrClient := httpx.NewClient(publishers.OAuth1Client(
		cfg.Tumblr.ConsumerKey, cfg.Tumblr.ConsumerSecret, cfg.Tumblr.OAuthToken, cfg.Tumblr.OAuthSecret, cfg.HTTP.Timeout,
	), retry, logger)

	pubs := []ports.Publisher{
		publishers.NewTwitter(twitterClient, downloader.NewHTTPDownloader(plain), cfg.Twitter, logger),
		publishers.NewLinkedIn(plain, cfg.LinkedIn, logger),
		publishers.NewFacebook(plain, cfg.Facebook, logger),
		publishers.NewPinterest(plain, cfg.Pinterest, logger),
		publishers.NewTumblr(tumblrClient, cfg.Tumblr, logger),
	}

	return service.NewOrchestrator(
		content.NewGenerator(cfg.LLM.Provider, text, logger),
		images.NewResolver(imageGen, logger),
		pubs,
		plain,
		cfg.Server.WebhookSecret,
		logger,
	)
}
