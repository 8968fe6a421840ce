package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"centercal/internal/config"
	"centercal/internal/display"
	"centercal/internal/ics"
	"centercal/internal/logger"
	"centercal/internal/observability"
	"centercal/internal/store"
	"centercal/internal/web"
)

// flagConfig holds CLI flag values; flags override the config file.
type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	logger.Info("centercal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		logger.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	logger.SetLevel(conf.LogLevel)
	logger.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"db_path", conf.DBPath,
		"refresh", conf.RefreshCron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st, err := store.OpenSQLite(conf.DBPath)
	if err != nil {
		logger.Error("failed to open store", err, "db_path", conf.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	loc := conf.Location()
	loader := display.NewLoader(st, loc, metrics)

	// Prime the kiosk snapshot, then keep it fresh on the configured cron
	// schedule. Each refresh gets its own timeout so a slow one cannot
	// block the next.
	refresh := func() {
		rctx, rcancel := context.WithTimeout(ctx, 30*time.Second)
		defer rcancel()
		loader.Refresh(rctx, time.Now())
	}
	refresh()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.RefreshCron, refresh); err != nil {
		logger.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	fetcher := ics.NewFetcher("./var/feed-cache")
	srv := web.NewServer(conf, st, loader, fetcher, metrics, registry)

	httpSrv := &http.Server{
		Addr:    conf.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", err)
	}

	logger.Info("centercal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/centercal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")

	flag.Parse()

	return cfg
}
