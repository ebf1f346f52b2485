package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "5000" {
		t.Errorf("expected port 5000, got %s", cfg.Server.Port)
	}
	if cfg.Server.Path != "/webhook" {
		t.Errorf("expected path /webhook, got %s", cfg.Server.Path)
	}
	if cfg.Server.TrustProxyHeaders {
		t.Error("expected proxy headers untrusted by default")
	}
	if cfg.Bitbucket.APIBaseURL != "https://api.bitbucket.org/2.0" {
		t.Errorf("expected bitbucket API base, got %s", cfg.Bitbucket.APIBaseURL)
	}
	if cfg.Bitbucket.Timeout != 10*time.Second {
		t.Errorf("expected bitbucket timeout 10s, got %v", cfg.Bitbucket.Timeout)
	}
	if cfg.Comments.PerAuthor {
		t.Error("expected per-author comments disabled by default")
	}
	if cfg.Comments.Default != DefaultComment {
		t.Errorf("expected default comment, got %q", cfg.Comments.Default)
	}
	if cfg.Bitbucket.HasCredentials() {
		t.Error("expected no credentials by default")
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
logging:
  level: "debug"
messages:
  authors:
    alice: "Alice shipped something"
comments:
  per_author: true
  authors:
    bob: "Bob, please review"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if got := cfg.Messages.Authors["alice"]; got != "Alice shipped something" {
		t.Errorf("expected alice message, got %q", got)
	}
	if !cfg.Comments.PerAuthor {
		t.Error("expected per_author enabled")
	}
	if got := cfg.Comments.Authors["bob"]; got != "Bob, please review" {
		t.Errorf("expected bob comment, got %q", got)
	}
	// Unchanged fields keep defaults
	if cfg.Comments.Default != DefaultComment {
		t.Errorf("expected default comment to survive, got %q", cfg.Comments.Default)
	}
	if cfg.Server.Path != "/webhook" {
		t.Errorf("expected default path, got %s", cfg.Server.Path)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error for invalid YAML")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("BBWEBHOOK_PORT", "7070")
	t.Setenv("BBWEBHOOK_LOG_LEVEL", "warn")
	t.Setenv("BITBUCKET_USERNAME", "jörg")
	t.Setenv("BITBUCKET_APP_PASSWORD", "app-pass")
	t.Setenv("BITBUCKET_TIMEOUT", "3s")
	t.Setenv("BBWEBHOOK_COMMENTS_PER_AUTHOR", "true")
	t.Setenv("BBWEBHOOK_BREAKER_TIMEOUT", "1m")
	t.Setenv("BBWEBHOOK_TRUST_PROXY_HEADERS", "true")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if !cfg.Server.TrustProxyHeaders {
		t.Error("expected trust_proxy_headers from env")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Bitbucket.Username != "jörg" {
		t.Errorf("expected UTF-8 username, got %s", cfg.Bitbucket.Username)
	}
	if !cfg.Bitbucket.HasCredentials() {
		t.Error("expected credentials from env")
	}
	if cfg.Bitbucket.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", cfg.Bitbucket.Timeout)
	}
	if !cfg.Comments.PerAuthor {
		t.Error("expected per-author comments enabled")
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
}

func TestEnvOverrideIgnoresMalformed(t *testing.T) {
	cfg := Defaults()

	t.Setenv("BITBUCKET_TIMEOUT", "soon")
	t.Setenv("BBWEBHOOK_RATE_BURST", "many")

	loadEnv(&cfg)

	if cfg.Bitbucket.Timeout != 10*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Bitbucket.Timeout)
	}
	if cfg.Rate.Burst != 100 {
		t.Errorf("expected default burst, got %d", cfg.Rate.Burst)
	}
}

func TestHasCredentials(t *testing.T) {
	tests := []struct {
		name string
		bb   Bitbucket
		want bool
	}{
		{"none", Bitbucket{}, false},
		{"token", Bitbucket{Token: "t"}, true},
		{"username only", Bitbucket{Username: "u"}, false},
		{"password only", Bitbucket{AppPassword: "p"}, false},
		{"basic pair", Bitbucket{Username: "u", AppPassword: "p"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bb.HasCredentials(); got != tt.want {
				t.Errorf("HasCredentials() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "BBWEBHOOK_NOTIFY_DESKTOP_BINARY"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s already set in environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte(key+"=/opt/bin/notify\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom("", envPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notify.DesktopBinary != "/opt/bin/notify" {
		t.Errorf("expected binary from .env, got %q", cfg.Notify.DesktopBinary)
	}
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	t.Setenv("BBWEBHOOK_PORT", "6060")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("BBWEBHOOK_PORT=1111\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom("", envPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected real env to win over .env, got %s", cfg.Server.Port)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if _, err := LoadFrom("", "/nonexistent/.env"); err != nil {
		t.Errorf("missing .env should not error, got %v", err)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "relative path",
			modify: func(c *Config) { c.Server.Path = "webhook" },
			errMsg: "server.path must start with '/'",
		},
		{
			name:   "zero body limit",
			modify: func(c *Config) { c.Server.MaxBodyBytes = 0 },
			errMsg: "server.max_body_bytes must be >= 1",
		},
		{
			name:   "empty API base",
			modify: func(c *Config) { c.Bitbucket.APIBaseURL = "" },
			errMsg: "bitbucket.api_base_url is required",
		},
		{
			name:   "zero timeout",
			modify: func(c *Config) { c.Bitbucket.Timeout = 0 },
			errMsg: "bitbucket.timeout must be > 0",
		},
		{
			name:   "bad desktop mode",
			modify: func(c *Config) { c.Notify.Desktop = "sometimes" },
			errMsg: `notify.desktop must be auto, on or off, got "sometimes"`,
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate",
			modify: func(c *Config) { c.Rate.RequestsPerSecond = 0 },
			errMsg: "rate.requests_per_second must be > 0",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "zero notify timeout",
			modify: func(c *Config) { c.Notify.Timeout = 0 },
			errMsg: "notify.timeout must be > 0",
		},
		{
			name:   "zero breaker timeout",
			modify: func(c *Config) { c.Breaker.Timeout = 0 },
			errMsg: "breaker.timeout must be > 0",
		},
		{
			name:   "zero cleanup interval",
			modify: func(c *Config) { c.Rate.CleanupInterval = 0 },
			errMsg: "rate.cleanup_interval and rate.max_idle_time must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"--port", "9090", "--log-level", "debug"})
	if err != nil {
		t.Fatal(err)
	}

	if flags.Port == nil || *flags.Port != "9090" {
		t.Errorf("expected port 9090, got %v", flags.Port)
	}
	if flags.LogLevel == nil || *flags.LogLevel != "debug" {
		t.Errorf("expected log-level debug, got %v", flags.LogLevel)
	}
	// Unset flags remain nil
	if flags.ConfigPath != nil {
		t.Errorf("expected nil ConfigPath, got %v", *flags.ConfigPath)
	}
	if flags.EnvFile != nil {
		t.Errorf("expected nil EnvFile, got %v", *flags.EnvFile)
	}
}

func TestParseFlagsShorthand(t *testing.T) {
	flags, err := ParseFlags([]string{"-p", "7070", "-c", "custom.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	if flags.Port == nil || *flags.Port != "7070" {
		t.Errorf("expected port 7070, got %v", flags.Port)
	}
	if flags.ConfigPath == nil || *flags.ConfigPath != "custom.yaml" {
		t.Errorf("expected config custom.yaml, got %v", flags.ConfigPath)
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	_, err := ParseFlags([]string{"--unknown-flag"})
	if err == nil {
		t.Error("expected error for unknown flag, got nil")
	}
}

func TestApplyCLINilFlags(t *testing.T) {
	cfg := Defaults()
	original := cfg

	// All-nil flags should change nothing.
	applyCLI(&cfg, CLIFlags{})

	if cfg.Server.Port != original.Server.Port {
		t.Errorf("port changed from %s to %s", original.Server.Port, cfg.Server.Port)
	}
	if cfg.Logging.Level != original.Logging.Level {
		t.Errorf("log level changed from %s to %s", original.Logging.Level, cfg.Logging.Level)
	}
}

func TestCLIOverridesEnv(t *testing.T) {
	t.Setenv("BBWEBHOOK_PORT", "7070")
	t.Setenv("BBWEBHOOK_LOG_LEVEL", "warn")

	flags, err := ParseFlags([]string{
		"--port", "3333",
		"--log-level", "error",
		"--config", filepath.Join(t.TempDir(), "absent.yaml"),
		"--env-file", filepath.Join(t.TempDir(), "absent.env"),
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadWithCLI(flags)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "3333" {
		t.Errorf("expected CLI port 3333 to override ENV 7070, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected CLI log-level error to override ENV warn, got %s", cfg.Logging.Level)
	}
}

func TestLoadWithCLICustomConfig(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: "5555"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	flags, err := ParseFlags([]string{"--config", yamlPath, "--env-file", filepath.Join(dir, "none.env")})
	if err != nil {
		t.Fatal(err)
	}

	cfg, resolvedPath, err := LoadWithCLI(flags)
	if err != nil {
		t.Fatal(err)
	}

	if resolvedPath != yamlPath {
		t.Errorf("expected resolved path %s, got %s", yamlPath, resolvedPath)
	}
	if cfg.Server.Port != "5555" {
		t.Errorf("expected port 5555 from custom YAML, got %s", cfg.Server.Port)
	}
}
