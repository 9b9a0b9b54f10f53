package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/stt-gateway/internal/api"
	"github.com/snarg/stt-gateway/internal/config"
	"github.com/snarg/stt-gateway/internal/notify"
	"github.com/snarg/stt-gateway/internal/settings"
	"github.com/snarg/stt-gateway/internal/stt"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default ./.env)")
	flag.StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&overrides.SettingsBackend, "settings-backend", "", "settings backend (file or postgres)")
	flag.StringVar(&overrides.SettingsFile, "settings-file", "", "path to settings JSON file")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "Postgres URL for the settings store")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("stt-gateway starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settings store
	storeLog := log.With().Str("component", "settings").Logger()
	var store settings.Store
	var fileStore *settings.FileStore
	switch cfg.SettingsBackend {
	case "postgres":
		store, err = settings.ConnectPostgres(ctx, cfg.DatabaseURL, storeLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to settings database")
		}
	default:
		fileStore = settings.NewFileStore(cfg.SettingsFile, storeLog)
		store = fileStore
	}
	defer store.Close()

	// Notification bus
	bus := notify.NewBus(cfg.EventRingSize)

	// Providers + service
	registry := stt.NewRegistry(
		stt.NewGeminiProvider(stt.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.RequestTimeout,
		}),
		stt.NewWhisperProvider(stt.WhisperOptions{
			APIKey:   cfg.WhisperAPIKey,
			Endpoint: cfg.WhisperEndpoint,
			Model:    cfg.WhisperModel,
			Timeout:  cfg.RequestTimeout,
		}),
	)
	svc := stt.NewService(stt.ServiceOptions{
		Registry:     registry,
		Notifier:     bus,
		PublishEvent: bus.PublishEvent,
		Log:          log.With().Str("component", "stt").Logger(),
	})

	if err := svc.LoadSettings(ctx, store); err != nil {
		log.Fatal().Err(err).Msg("failed to load provider settings")
	}

	// Reload provider settings when the file is edited externally
	if fileStore != nil {
		go func() {
			if err := fileStore.Watch(ctx, func() { svc.ReloadSettings(ctx, store) }); err != nil {
				log.Warn().Err(err).Msg("settings file watch stopped")
			}
		}()
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, svc, store, bus, version, startTime, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("stt-gateway stopped")
}
