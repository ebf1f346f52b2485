package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "bbwebhook.yaml"

// DefaultEnvFile is the dotenv file merged into the process environment.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; missing files are not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile, DefaultEnvFile)
}

// LoadFrom returns a Config loaded from the given YAML and dotenv paths.
// Variables already present in the environment win over the dotenv file.
func LoadFrom(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadDotEnv merges a dotenv file into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BBWEBHOOK_PORT")
	setString(&cfg.Server.Path, "BBWEBHOOK_PATH")
	setInt64(&cfg.Server.MaxBodyBytes, "BBWEBHOOK_MAX_BODY_BYTES")
	setBool(&cfg.Server.TrustProxyHeaders, "BBWEBHOOK_TRUST_PROXY_HEADERS")

	setString(&cfg.Logging.Level, "BBWEBHOOK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BBWEBHOOK_LOG_SERVICE")
	setString(&cfg.Logging.Format, "BBWEBHOOK_LOG_FORMAT")
	setBool(&cfg.Logging.Async, "BBWEBHOOK_LOG_ASYNC")

	// Bitbucket API
	setString(&cfg.Bitbucket.APIBaseURL, "BITBUCKET_API_BASE_URL")
	setString(&cfg.Bitbucket.Username, "BITBUCKET_USERNAME")
	setString(&cfg.Bitbucket.AppPassword, "BITBUCKET_APP_PASSWORD")
	setString(&cfg.Bitbucket.Token, "BITBUCKET_TOKEN")
	setDuration(&cfg.Bitbucket.Timeout, "BITBUCKET_TIMEOUT")

	setString(&cfg.Comments.Default, "BBWEBHOOK_DEFAULT_COMMENT")
	setBool(&cfg.Comments.PerAuthor, "BBWEBHOOK_COMMENTS_PER_AUTHOR")

	// Notification sinks
	setString(&cfg.Notify.Desktop, "BBWEBHOOK_NOTIFY_DESKTOP")
	setString(&cfg.Notify.DesktopBinary, "BBWEBHOOK_NOTIFY_DESKTOP_BINARY")
	setDuration(&cfg.Notify.Timeout, "BBWEBHOOK_NOTIFY_TIMEOUT")
	setString(&cfg.Notify.SlackWebhookURL, "BBWEBHOOK_SLACK_WEBHOOK_URL")
	setString(&cfg.Notify.DiscordWebhookURL, "BBWEBHOOK_DISCORD_WEBHOOK_URL")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "BBWEBHOOK_NATS_SUBJECT")

	setInt(&cfg.Breaker.MaxFailures, "BBWEBHOOK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BBWEBHOOK_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "BBWEBHOOK_RATE_RPS")
	setInt(&cfg.Rate.Burst, "BBWEBHOOK_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "BBWEBHOOK_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "BBWEBHOOK_RATE_MAX_IDLE_TIME")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

// validate checks structural sanity. Missing credentials are a legal,
// degraded configuration and are deliberately not checked here.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if !strings.HasPrefix(cfg.Server.Path, "/") {
		return errors.New("server.path must start with '/'")
	}
	if cfg.Server.MaxBodyBytes < 1 {
		return errors.New("server.max_body_bytes must be >= 1")
	}
	if cfg.Bitbucket.APIBaseURL == "" {
		return errors.New("bitbucket.api_base_url is required")
	}
	if cfg.Bitbucket.Timeout <= 0 {
		return errors.New("bitbucket.timeout must be > 0")
	}
	switch cfg.Notify.Desktop {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("notify.desktop must be auto, on or off, got %q", cfg.Notify.Desktop)
	}
	if cfg.Notify.Timeout <= 0 {
		return errors.New("notify.timeout must be > 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Breaker.Timeout <= 0 {
		return errors.New("breaker.timeout must be > 0")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Rate.CleanupInterval <= 0 || cfg.Rate.MaxIdleTime <= 0 {
		return errors.New("rate.cleanup_interval and rate.max_idle_time must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
