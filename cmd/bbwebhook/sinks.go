package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Strob0t/bbwebhook/internal/config"
	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

// sinkSettings maps each registered sink name to its factory settings.
func sinkSettings(cfg *config.Config) map[string]map[string]string {
	return map[string]map[string]string{
		"desktop": {"mode": cfg.Notify.Desktop, "binary": cfg.Notify.DesktopBinary},
		"slack":   {"webhook_url": cfg.Notify.SlackWebhookURL},
		"discord": {"webhook_url": cfg.Notify.DiscordWebhookURL},
		"nats":    {"url": cfg.NATS.URL, "subject": cfg.NATS.Subject},
	}
}

// buildSinks instantiates every registered sink that has configuration.
// Sinks holding connections are returned as closers as well.
func buildSinks(cfg *config.Config) ([]notifier.Notifier, []io.Closer, error) {
	settings := sinkSettings(cfg)

	var (
		sinks   []notifier.Notifier
		closers []io.Closer
	)
	for _, name := range notifier.Available() {
		n, err := notifier.New(name, settings[name])
		if errors.Is(err, notifier.ErrNotConfigured) {
			slog.Debug("notification sink disabled", "sink", name)
			continue
		}
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("sink %s: %w", name, err)
		}
		if c, ok := n.(io.Closer); ok {
			closers = append(closers, c)
		}
		slog.Info("notification sink enabled", "sink", n.Name(), "local", n.Capabilities().Local)
		sinks = append(sinks, n)
	}
	return sinks, closers, nil
}
