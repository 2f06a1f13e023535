package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options selects the sources Load reads.
type Options struct {
	// File is an optional YAML config file.
	File string
	// EnvFile is loaded into the process environment if it exists.
	// Variables already set in the environment are not replaced.
	EnvFile string
}

// Load builds the configuration from defaults, opts.File and the environment.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := Default()
	if opts.File != "" {
		fileCfg, err := LoadFile(opts.File, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile parses a YAML file on top of base.
func LoadFile(path string, base Config) (Config, error) {
	cfg := base
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("invalid http max retries %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("invalid http timeout %s", c.HTTP.Timeout)
	}
	if c.Server.JobRatePerSec < 0 {
		return fmt.Errorf("invalid job rate %v", c.Server.JobRatePerSec)
	}
	return nil
}

// applyEnv overrides cfg with any variables set in the environment.
// Malformed values fail fast.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = p
	}
	if v := getenv("DEBUG"); v != "" {
		// Anything other than "true" is false, matching the publisher's
		// historical behaviour.
		cfg.Server.Debug = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	str("WP_WEBHOOK_SECRET", &cfg.Server.WebhookSecret)
	if v := getenv("JOB_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid JOB_RATE_PER_SEC %q: %w", v, err)
		}
		cfg.Server.JobRatePerSec = f
	}
	if v := getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_BODY_BYTES %q: %w", v, err)
		}
		cfg.Server.MaxBodyBytes = n
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if err := duration(getenv, "HTTP_TIMEOUT", &cfg.HTTP.Timeout); err != nil {
		return err
	}
	if err := duration(getenv, "HTTP_RETRY_DELAY", &cfg.HTTP.RetryDelay); err != nil {
		return err
	}
	if v := getenv("HTTP_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_MAX_RETRIES %q: %w", v, err)
		}
		cfg.HTTP.MaxRetries = n
	}

	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("LLM_API_KEY", &cfg.LLM.APIKey)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	if v := getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		cfg.LLM.Temperature = f
	}

	str("IMAGE_PROVIDER", &cfg.Image.Provider)
	str("IMAGE_API_KEY", &cfg.Image.APIKey)
	str("IMAGE_MODEL", &cfg.Image.Model)
	str("IMAGE_BASE_URL", &cfg.Image.BaseURL)

	str("TWITTER_API_KEY", &cfg.Twitter.APIKey)
	str("TWITTER_API_SECRET", &cfg.Twitter.APISecret)
	str("TWITTER_ACCESS_TOKEN", &cfg.Twitter.AccessToken)
	str("TWITTER_ACCESS_SECRET", &cfg.Twitter.AccessSecret)

	str("LINKEDIN_CLIENT_ID", &cfg.LinkedIn.ClientID)
	str("LINKEDIN_CLIENT_SECRET", &cfg.LinkedIn.ClientSecret)
	str("LINKEDIN_ACCESS_TOKEN", &cfg.LinkedIn.AccessToken)
	str("LINKEDIN_USER_ID", &cfg.LinkedIn.UserID)

	str("FACEBOOK_PAGE_ACCESS_TOKEN", &cfg.Facebook.PageAccessToken)
	str("FACEBOOK_PAGE_ID", &cfg.Facebook.PageID)
	str("FACEBOOK_GRAPH_URL", &cfg.Facebook.GraphURL)

	str("PINTEREST_ACCESS_TOKEN", &cfg.Pinterest.AccessToken)
	str("PINTEREST_BOARD_ID", &cfg.Pinterest.BoardID)

	str("TUMBLR_CONSUMER_KEY", &cfg.Tumblr.ConsumerKey)
	str("TUMBLR_CONSUMER_SECRET", &cfg.Tumblr.ConsumerSecret)
	str("TUMBLR_OAUTH_TOKEN", &cfg.Tumblr.OAuthToken)
	str("TUMBLR_OAUTH_SECRET", &cfg.Tumblr.OAuthSecret)
	str("TUMBLR_BLOG_IDENTIFIER", &cfg.Tumblr.BlogIdentifier)

	return nil
}

func duration(getenv func(string) string, name string, dst *time.Duration) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = d
	return nil
}
