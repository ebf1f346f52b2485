// Package config provides hierarchical configuration loading for bbwebhook.
// Precedence: defaults < YAML file < .env file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the webhook service.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Bitbucket Bitbucket `yaml:"bitbucket"`
	Messages  Messages  `yaml:"messages"`
	Comments  Comments  `yaml:"comments"`
	Notify    Notify    `yaml:"notify"`
	NATS      NATS      `yaml:"nats"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	OTel      OTel      `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port         string `yaml:"port"`
	Path         string `yaml:"path"`           // webhook route (default: /webhook)
	MaxBodyBytes int64  `yaml:"max_body_bytes"` // inbound payload limit

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that sets those headers.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Format  string `yaml:"format"` // "auto" | "json" | "text"
	Async   bool   `yaml:"async"`
}

// Bitbucket holds the pull-request comment API configuration.
// Token takes precedence over Username/AppPassword when both are set.
type Bitbucket struct {
	APIBaseURL  string        `yaml:"api_base_url"`
	Username    string        `yaml:"username"`
	AppPassword string        `yaml:"app_password"` //nolint:gosec // G117: config field name, not a secret
	Token       string        `yaml:"token"`        //nolint:gosec // G117: config field name, not a secret
	Timeout     time.Duration `yaml:"timeout"`
}

// HasCredentials reports whether any form of API credential is configured.
func (b Bitbucket) HasCredentials() bool {
	return b.Token != "" || (b.Username != "" && b.AppPassword != "")
}

// Messages maps Bitbucket usernames to custom push notification text.
type Messages struct {
	Authors map[string]string `yaml:"authors"`
}

// Comments controls the text posted on newly created pull requests.
type Comments struct {
	Default   string            `yaml:"default"`
	PerAuthor bool              `yaml:"per_author"` // use Authors lookup before Default
	Authors   map[string]string `yaml:"authors"`
}

// Notify configures the push notification sinks.
type Notify struct {
	Desktop           string        `yaml:"desktop"` // "auto" | "on" | "off"
	DesktopBinary     string        `yaml:"desktop_binary"`
	Timeout           time.Duration `yaml:"timeout"`
	SlackWebhookURL   string        `yaml:"slack_webhook_url"`
	DiscordWebhookURL string        `yaml:"discord_webhook_url"`
}

// NATS holds the optional event bus configuration. An empty URL disables it.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Breaker holds circuit breaker configuration for the comment API.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration for the inbound endpoint.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// OTel holds OpenTelemetry exporter configuration. An empty endpoint keeps
// the global no-op providers.
type OTel struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// DefaultComment is posted on every new pull request unless overridden.
const DefaultComment = "@reviewers A new pull request is ready for review. Please take a look when you have a moment."

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:         "5000",
			Path:         "/webhook",
			MaxBodyBytes: 1 << 20,
		},
		Logging: Logging{
			Level:   "info",
			Service: "bbwebhook",
			Format:  "auto",
		},
		Bitbucket: Bitbucket{
			APIBaseURL: "https://api.bitbucket.org/2.0",
			Timeout:    10 * time.Second,
		},
		Messages: Messages{
			Authors: map[string]string{},
		},
		Comments: Comments{
			Default: DefaultComment,
			Authors: map[string]string{},
		},
		Notify: Notify{
			Desktop:       "auto",
			DesktopBinary: "terminal-notifier",
			Timeout:       5 * time.Second,
		},
		NATS: NATS{
			Subject: "bbwebhook.notifications",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		OTel: OTel{
			Insecure: true,
		},
	}
}
