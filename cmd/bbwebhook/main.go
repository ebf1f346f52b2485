package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	otelglobal "go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/bbwebhook/internal/adapter/bitbucket"
	bbhttp "github.com/Strob0t/bbwebhook/internal/adapter/http"
	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/adapter/ws"
	"github.com/Strob0t/bbwebhook/internal/config"
	"github.com/Strob0t/bbwebhook/internal/logger"
	"github.com/Strob0t/bbwebhook/internal/middleware"
	"github.com/Strob0t/bbwebhook/internal/resilience"
	"github.com/Strob0t/bbwebhook/internal/secrets"
	"github.com/Strob0t/bbwebhook/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && isCommand(os.Args[1]) {
		if err := runCommand(os.Args[1], os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, yamlPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"config_file", yamlPath,
		"port", cfg.Server.Port,
		"path", cfg.Server.Path,
		"log_level", cfg.Logging.Level,
		"comment_api_configured", cfg.Bitbucket.HasCredentials(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownOTel, err := cfotel.Setup(ctx, cfg.OTel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics(otelglobal.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Sinks ---
	sinks, closers, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				slog.Warn("sink close failed", "error", err)
			}
		}
	}()

	// --- Services ---
	hub := ws.NewHub()

	breaker := resilience.NewBreaker("bitbucket", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	comments := bitbucket.NewClient(cfg.Bitbucket, breaker)

	vault, err := secrets.NewVault(secrets.BitbucketLoader(func() (*config.Config, error) {
		c, _, err := config.LoadWithCLI(flags)
		return c, err
	}))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	comments.UseCredentials(vault)
	if !comments.Configured() {
		slog.Warn("bitbucket credentials not configured, pull request comments disabled")
	}

	notify := service.NewNotificationService(sinks, cfg.Notify.Timeout)
	notify.SetMetrics(metrics)

	dispatcher := service.NewWebhookDispatcher(notify, comments, hub, cfg.Messages, cfg.Comments)
	dispatcher.SetMetrics(metrics)

	// --- HTTP ---
	handlers := &bbhttp.Handlers{
		Dispatcher:   dispatcher,
		Notify:       notify,
		CommentAPI:   comments,
		Hub:          hub,
		Metrics:      metrics,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)

	r := newRouter(cfg, handlers, limiter)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr, "webhook_path", cfg.Server.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		limiter.RunCleanup(gctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		return nil
	})

	g.Go(func() error {
		reloadOnHangup(gctx, vault, comments)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		hub.Close()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// reloadOnHangup re-reads Bitbucket credentials on SIGHUP until ctx is done.
// Values already present in the process environment still win, so rotation
// goes through the YAML file.
func reloadOnHangup(ctx context.Context, vault *secrets.Vault, comments *bitbucket.Client) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("credential reload failed, keeping previous values", "error", err)
				continue
			}
			slog.Info("bitbucket credentials reloaded",
				"comment_api_configured", comments.Configured(),
				"username", vault.Get(secrets.KeyBitbucketUsername),
				"token", vault.Redacted(secrets.KeyBitbucketToken),
			)
		}
	}
}
