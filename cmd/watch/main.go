package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/afroash/multisensor/internal/client"
	"github.com/afroash/multisensor/internal/config"
	"github.com/afroash/multisensor/internal/logging"
	"github.com/afroash/multisensor/internal/models"
)

const (
	version   = "v0.1.0"
	drainSize = 50
)

func main() {
	configPath := flag.String("config", "configs/multisensor.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Feed.Validate(); err != nil {
		log.Fatalf("Invalid feed config: %v", err)
	}

	// stdout carries the events
	logger, closeLog, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.Info().
		Str("version", version).
		Str("url", cfg.Feed.URL).
		Int("buffer_size", cfg.Feed.BufferSize).
		Msg("Starting feed watcher")

	events := client.NewEventBuffer(cfg.Feed.BufferSize, true)
	conn := client.NewConnection(client.ConnectionConfig{
		URL:                  cfg.Feed.URL,
		AuthToken:            cfg.Feed.AuthToken,
		ConnectTimeout:       cfg.Feed.ConnectTimeout,
		ReconnectInterval:    cfg.Feed.ReconnectInterval,
		MaxReconnectInterval: cfg.Feed.MaxReconnectInterval,
		PongTimeout:          cfg.Server.PongTimeout,
	}, events, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go drain(ctx, events, os.Stdout)

	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Feed watcher stopped")
	}
	conn.Close()

	// print whatever arrived before the signal
	for _, msg := range events.PopBatch(events.Size()) {
		printEvent(os.Stdout, msg)
	}
	logger.Info().Str("buffer", events.String()).Msg("Feed watcher stopped")
}

// drain prints buffered events as they arrive until ctx is cancelled
func drain(ctx context.Context, events *client.EventBuffer, w io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-events.Ready():
			for !events.IsEmpty() {
				for _, msg := range events.PopBatch(drainSize) {
					printEvent(w, msg)
				}
			}
		}
	}
}

// printEvent writes one feed message in the same format the menu uses
func printEvent(w io.Writer, msg *models.Message) {
	switch msg.Type {
	case models.MessageTypeHello:
		var hello models.HelloMessage
		if err := msg.UnmarshalPayload(&hello); err != nil {
			fmt.Fprintf(w, "malformed %s event: %v\n", msg.Type, err)
			return
		}
		fmt.Fprintf(w, "Connected to session %s (%d sensors)\n", hello.SessionID, len(hello.Sensors))
		for _, s := range hello.Sensors {
			fmt.Fprintf(w, "  %s [%s] %.2f..%.2f %s\n", s.Name, s.Kind, s.Min, s.Max, s.Unit)
		}
	case models.MessageTypeMeasurement:
		var m models.Measurement
		if err := msg.UnmarshalPayload(&m); err != nil {
			fmt.Fprintf(w, "malformed %s event: %v\n", msg.Type, err)
			return
		}
		fmt.Fprintln(w, m.String())
	case models.MessageTypeAlarm:
		var a models.Alarm
		if err := msg.UnmarshalPayload(&a); err != nil {
			fmt.Fprintf(w, "malformed %s event: %v\n", msg.Type, err)
			return
		}
		fmt.Fprintf(w, " ALARM TRIGGERED! %s\n", a.String())
	case models.MessageTypeThreshold:
		var t models.Threshold
		if err := msg.UnmarshalPayload(&t); err != nil {
			fmt.Fprintf(w, "malformed %s event: %v\n", msg.Type, err)
			return
		}
		fmt.Fprintf(w, "Threshold configured for %s: %s %g\n", t.SensorName, t.Direction.Symbol(), t.Limit)
	case models.MessageTypeError:
		var e models.ErrorMessage
		if err := msg.UnmarshalPayload(&e); err != nil {
			fmt.Fprintf(w, "malformed %s event: %v\n", msg.Type, err)
			return
		}
		fmt.Fprintf(w, "server error %s: %s\n", e.Code, e.Message)
	default:
		fmt.Fprintf(w, "unknown event type %q\n", msg.Type)
	}
}
