package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/inboundpanel/internal/api"
	"github.com/creamcroissant/inboundpanel/internal/bootstrap"
	"github.com/creamcroissant/inboundpanel/internal/job"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger := newLogger(cfg, os.Stdout)

	a, err := openApp(ctx, cfg, appOptions{Output: os.Stdout, Registry: registry})
	if err != nil {
		return err
	}
	defer a.Close()

	signingKey, source, err := resolveSigningKeyWith(ctx, a.db)
	if err != nil {
		return err
	}
	cfg.Auth.SigningKey = signingKey
	switch source {
	case bootstrap.SigningKeyFromGenerated:
		logger.Info("jwt signing key generated", "source", "generated-and-persisted")
	default:
		logger.Info("jwt signing key loaded", "source", string(source))
	}

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}

	i18nManager, err := i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang("en-US"),
	)
	if err != nil {
		return err
	}

	scheduler := job.NewScheduler(logger)
	if cfg.Backup.Enabled {
		backup := job.NewExportBackupJob(a.inbounds, cfg.Backup.Dir, cfg.Backup.Keep, logger)
		if _, err := scheduler.Register(cfg.Backup.Spec, backup); err != nil {
			return err
		}
		logger.Info("export backup scheduled", "spec", cfg.Backup.Spec, "dir", cfg.Backup.Dir, "keep", cfg.Backup.Keep)
	}
	scheduler.Start()

	router := api.NewRouter(logger, api.Services{
		Inbounds:    a.inbounds,
		Packs:       a.packs,
		Directory:   a.directory,
		Tokens:      infra.Token,
		RateLimiter: infra.RateLimiter,
		I18n:        i18nManager,
	}, api.Options{
		HTTP:      cfg.HTTP,
		Metrics:   cfg.Metrics,
		RateLimit: cfg.RateLimit,
		Registry:  registry,
	})

	server := bootstrap.NewHTTPServer(cfg.HTTP, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
