// Package config builds the immutable service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// the process environment (after loading a .env file if present).
package config

import (
	"time"
)

// Config is constructed once at startup and passed to every component.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Image     ImageConfig     `yaml:"image"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	Facebook  FacebookConfig  `yaml:"facebook"`
	Pinterest PinterestConfig `yaml:"pinterest"`
	Tumblr    TumblrConfig    `yaml:"tumblr"`
}

// ServerConfig holds the inbound webhook settings.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Debug         bool   `yaml:"debug"`
	WebhookSecret string `yaml:"webhook_secret"`
	// JobRatePerSec throttles POST /job. Zero disables the limit.
	JobRatePerSec float64 `yaml:"job_rate_per_sec"`
	MaxBodyBytes  int64   `yaml:"max_body_bytes"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// HTTPConfig controls the outbound transport shared by all integrations.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// LLMConfig configures the text model used for content variants.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	BaseURL     string  `yaml:"base_url"`
}

// ImageConfig configures the image generation model.
type ImageConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// TwitterConfig holds the OAuth 1.0a user-context credentials for Twitter.
type TwitterConfig struct {
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	AccessToken  string `yaml:"access_token"`
	AccessSecret string `yaml:"access_secret"`
}

// Configured reports whether all four OAuth 1.0a credentials are set.
func (c TwitterConfig) Configured() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// LinkedInConfig holds the LinkedIn OAuth 2.0 credentials and author id.
type LinkedInConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	// UserID is the member id posts are authored as (urn:li:person:<id>).
	UserID string `yaml:"user_id"`
}

// FacebookConfig holds the page token and page id for the Graph API.
type FacebookConfig struct {
	PageAccessToken string `yaml:"page_access_token"`
	PageID          string `yaml:"page_id"`
	// GraphURL overrides the versioned Graph API base URL.
	GraphURL string `yaml:"graph_url"`
}

// Configured reports whether the page token and page id are set.
func (c FacebookConfig) Configured() bool {
	return c.PageAccessToken != "" && c.PageID != ""
}

// PinterestConfig holds the Pinterest token and target board.
type PinterestConfig struct {
	AccessToken string `yaml:"access_token"`
	BoardID     string `yaml:"board_id"`
}

// Configured reports whether the token and board id are set.
func (c PinterestConfig) Configured() bool {
	return c.AccessToken != "" && c.BoardID != ""
}

// TumblrConfig holds the OAuth 1.0a credentials and target blog for Tumblr.
type TumblrConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	OAuthToken     string `yaml:"oauth_token"`
	OAuthSecret    string `yaml:"oauth_secret"`
	BlogIdentifier string `yaml:"blog_identifier"`
}

// Configured reports whether the four OAuth 1.0a credentials are set.
// The blog identifier is checked separately so the error can say which
// part is missing.
func (c TumblrConfig) Configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.OAuthToken != "" && c.OAuthSecret != ""
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			MaxBodyBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4-1106-preview",
			Temperature: 0.7,
			BaseURL:     "https://api.openai.com/v1",
		},
		Image: ImageConfig{
			Provider: "openai",
			Model:    "dall-e-3",
			BaseURL:  "https://api.openai.com/v1",
		},
	}
}
