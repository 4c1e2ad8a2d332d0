package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	httpapi "github.com/i474232898/weather-edge/internal/api/http"
	"github.com/i474232898/weather-edge/internal/config"
	"github.com/i474232898/weather-edge/internal/market"
	"github.com/i474232898/weather-edge/internal/scheduler"
	"github.com/i474232898/weather-edge/internal/store"
	"github.com/i474232898/weather-edge/internal/upstream"
	"github.com/i474232898/weather-edge/internal/weather"
	"github.com/i474232898/weather-edge/internal/weather/backend"
)

const appName = "weather-edge"

func main() {
	configFile := pflag.StringP("config", "c", "", "optional YAML config file (overrides CONFIG_FILE)")
	port := pflag.StringP("port", "p", "", "listen port (overrides PORT)")
	pflag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *configFile != "" {
		_ = os.Setenv("CONFIG_FILE", *configFile)
	}
	if *port != "" {
		_ = os.Setenv("PORT", *port)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	// Price lookups reuse identical upstream responses for a short window.
	kalshiHTTP := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: upstream.NewRevalidateTransport(http.DefaultTransport, cfg.PriceRevalidate),
	}
	prices := market.NewClient(kalshiHTTP, cfg.KalshiBaseURL, cfg.KalshiAPIKey)
	if cfg.KalshiAPIKey == "" {
		logrus.Warn("KALSHI_API_KEY is not set; price lookups will be rejected upstream")
	}

	// Backend reader for the dashboard views.
	var reader weather.Reader
	switch cfg.BackendDriver {
	case config.DriverSQLite:
		sqlite, err := backend.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logrus.WithError(err).WithField("path", cfg.SQLitePath).Fatal("failed to open sqlite backend")
		}
		defer sqlite.Close()
		reader = sqlite
	default:
		if cfg.UsesPlaceholderBackend() {
			logrus.Warn("supabase is not configured; dashboard reads will fail until NEXT_PUBLIC_SUPABASE_URL and NEXT_PUBLIC_SUPABASE_ANON_KEY are set")
		}
		reader = backend.NewSupabaseReader(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.SupabaseURL, cfg.SupabaseAnonKey)
	}

	// In-memory health history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	service := weather.NewService(reader, memStore)

	sched := scheduler.New(cfg.HealthInterval, service)
	if err := sched.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	app := httpapi.NewApp(appName)
	httpapi.RegisterRoutes(app, appName, prices, service)

	// Start server with graceful shutdown
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"backend": cfg.BackendDriver,
		}).Info("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.WithError(err).Error("fiber server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Error("error during shutdown")
	}
}
