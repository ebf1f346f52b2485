package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Strob0t/bbwebhook/internal/config"
	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

const redacted = "********"

var commands = map[string]func(args []string, w io.Writer) error{
	"config": runConfigCommand,
	"sinks":  runSinksCommand,
	"help":   runHelpCommand,
}

func isCommand(name string) bool {
	_, ok := commands[name]
	return ok
}

// runCommand dispatches inspection subcommands. They never start the server.
func runCommand(name string, args []string, w io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		_ = runHelpCommand(nil, w)
		return fmt.Errorf("unknown command: %s", name)
	}
	return cmd(args, w)
}

func runHelpCommand(_ []string, w io.Writer) error {
	_, err := fmt.Fprint(w, `Usage: bbwebhook [flags]
       bbwebhook <command> [--config FILE] [--env-file FILE]

Commands:
  config   Print the effective configuration (secrets redacted)
  sinks    List notification sinks and whether they are configured
  help     Show this help

Flags:
  -c, --config FILE     YAML config file (default bbwebhook.yaml)
      --env-file FILE   dotenv file (default .env)
  -p, --port PORT       HTTP listen port
      --path PATH       webhook route
      --log-level LVL   debug | info | warn | error
`)
	return err
}

func loadForCommand(args []string) (*config.Config, string, error) {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return nil, "", err
	}
	return config.LoadWithCLI(flags)
}

func runConfigCommand(args []string, w io.Writer) error {
	cfg, yamlPath, err := loadForCommand(args)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "config_file\t%s\n", yamlPath)
	for _, kv := range configRows(cfg) {
		fmt.Fprintf(tw, "%s\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}

func configRows(cfg *config.Config) [][2]string {
	return [][2]string{
		{"server.port", cfg.Server.Port},
		{"server.path", cfg.Server.Path},
		{"server.max_body_bytes", strconv.FormatInt(cfg.Server.MaxBodyBytes, 10)},
		{"server.trust_proxy_headers", strconv.FormatBool(cfg.Server.TrustProxyHeaders)},
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"logging.async", strconv.FormatBool(cfg.Logging.Async)},
		{"bitbucket.api_base_url", cfg.Bitbucket.APIBaseURL},
		{"bitbucket.username", cfg.Bitbucket.Username},
		{"bitbucket.app_password", redact(cfg.Bitbucket.AppPassword)},
		{"bitbucket.token", redact(cfg.Bitbucket.Token)},
		{"bitbucket.timeout", cfg.Bitbucket.Timeout.String()},
		{"messages.authors", strconv.Itoa(len(cfg.Messages.Authors)) + " entries"},
		{"comments.per_author", strconv.FormatBool(cfg.Comments.PerAuthor)},
		{"comments.authors", strconv.Itoa(len(cfg.Comments.Authors)) + " entries"},
		{"notify.desktop", cfg.Notify.Desktop},
		{"notify.timeout", cfg.Notify.Timeout.String()},
		{"notify.slack_webhook_url", redact(cfg.Notify.SlackWebhookURL)},
		{"notify.discord_webhook_url", redact(cfg.Notify.DiscordWebhookURL)},
		{"nats.url", cfg.NATS.URL},
		{"nats.subject", cfg.NATS.Subject},
		{"breaker.max_failures", strconv.Itoa(cfg.Breaker.MaxFailures)},
		{"breaker.timeout", cfg.Breaker.Timeout.String()},
		{"rate.requests_per_second", strconv.FormatFloat(cfg.Rate.RequestsPerSecond, 'f', -1, 64)},
		{"rate.burst", strconv.Itoa(cfg.Rate.Burst)},
		{"otel.endpoint", cfg.OTel.Endpoint},
	}
}

// redact hides secrets and webhook URLs, which embed their own tokens.
func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

func runSinksCommand(args []string, w io.Writer) error {
	cfg, _, err := loadForCommand(args)
	if err != nil {
		return err
	}
	settings := sinkSettings(cfg)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SINK\tCONFIGURED")
	for _, name := range notifier.Available() {
		fmt.Fprintf(tw, "%s\t%t\n", name, sinkConfigured(name, settings[name]))
	}
	return tw.Flush()
}

// sinkConfigured reports whether name has the settings it needs without
// constructing it, so no connections are opened.
func sinkConfigured(name string, s map[string]string) bool {
	switch name {
	case "desktop":
		return s["mode"] != "off"
	case "nats":
		return s["url"] != ""
	default:
		return s["webhook_url"] != ""
	}
}
