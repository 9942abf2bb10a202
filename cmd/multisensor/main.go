package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/afroash/multisensor/internal/config"
	"github.com/afroash/multisensor/internal/logging"
	"github.com/afroash/multisensor/internal/monitor"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// stdout belongs to the menu
	logger, closeLog, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	reg, err := cfg.Registry()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid sensor configuration")
	}
	session := monitor.NewSession(reg, logger)
	if err := cfg.ApplyThresholds(session); err != nil {
		logger.Warn().Err(err).Msg("Some configured thresholds were not applied")
	}

	logger.Info().
		Str("version", version).
		Str("session_id", session.ID()).
		Strs("sensors", reg.Names()).
		Msg("Starting multisensor")

	if err := newMenu(session, os.Stdin, os.Stdout, cfg.Storage.CSVPath).run(); err != nil {
		logger.Error().Err(err).Msg("Input failed")
		closeLog()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return cfg, nil
}
