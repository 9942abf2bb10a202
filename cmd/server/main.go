package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/multisensor/internal/config"
	"github.com/afroash/multisensor/internal/logging"
	"github.com/afroash/multisensor/internal/monitor"
	"github.com/afroash/multisensor/internal/server"
	"github.com/afroash/multisensor/internal/storage"
)

const version = "v0.1.0"

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/multisensor.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		log.Fatalf("Invalid server config: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.Info().
		Str("version", version).
		Str("addr", cfg.Server.Address()).
		Msg("Starting multisensor server")
	logger.Debug().Str("config", cfg.String()).Msg("Configuration loaded")

	reg, err := cfg.Registry()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid sensor configuration")
	}
	m := server.NewSerialized(monitor.NewSession(reg, logger))
	if err := cfg.ApplyThresholds(m); err != nil {
		logger.Warn().Err(err).Msg("Some configured thresholds were not applied")
	}

	feed := server.NewFeed(cfg.Server.AuthToken, m, logger, server.FeedOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PingInterval:   cfg.Server.PingInterval,
		PongWait:       cfg.Server.PongTimeout,
		SendBuffer:     cfg.Server.SendBuffer,
	})
	m.Subscribe(feed)

	var journal *storage.Journal
	if cfg.Storage.JournalPath != "" {
		journal = storage.NewJournal(cfg.Storage.JournalPath, storage.JournalConfig{
			FlushPeriod: cfg.Storage.JournalFlush,
		}, logger)
		m.Subscribe(journal)
	}

	api := server.NewAPIHandler(m, server.APIOptions{
		AuthToken:      cfg.Server.AuthToken,
		DataDir:        cfg.Storage.DataDir,
		DefaultFile:    cfg.Storage.CSVPath,
		Version:        version,
		Subscribers:    feed.Count,
		SubscriberList: feed.Subscribers,
	}, logger)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("GET /feed", feed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Poll.Interval > 0 {
		poller := monitor.NewPoller(m, cfg.Poll.Interval, logger)
		go poller.Start(ctx)
	}
	go watchConfig(ctx, *configPath, m, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	// Feed connections are hijacked, so Shutdown does not close them
	feed.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	if journal != nil {
		journal.Stop()
		logger.Info().Interface("journal", journal.Stats()).Msg("Journal stopped")
	}

	logger.Info().Int("measurements", m.Len()).Msg("Server stopped")
}

// watchConfig re-applies thresholds whenever the config file changes.
// Sensors are fixed for the life of the session.
func watchConfig(ctx context.Context, path string, m *server.Serialized, logger zerolog.Logger) {
	err := config.Watch(ctx, path, logger, func(cfg *config.Config) {
		if err := cfg.ApplyThresholds(m); err != nil {
			logger.Warn().Err(err).Msg("Some reloaded thresholds were not applied")
			return
		}
		logger.Info().Int("thresholds", len(cfg.Thresholds)).Msg("Thresholds reloaded")
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Config watcher stopped")
	}
}
