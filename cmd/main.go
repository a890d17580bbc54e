package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vesyncbridge/internal/api"
	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/config"
	"vesyncbridge/internal/discovery"
	"vesyncbridge/internal/platform"
	"vesyncbridge/internal/vesync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		logger.Fatal("Missing cloud credentials", zap.Error(err))
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	loader := config.NewLoader(configDir, logger)
	if err := loader.LoadAll(); err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	cfg := loader.GetBridgeConfig()

	logger.Info("Starting VeSync bridge",
		zap.String("username", creds.Username),
		zap.Duration("poll_interval", cfg.PollInterval()),
		zap.Bool("read_only", cfg.ReadOnly))

	// Log into the cloud; the bridge refuses to start without a session.
	manager := vesync.NewManager(creds.Username, creds.Password, creds.TimeZone, logger)
	if creds.BaseURL != "" {
		manager.SetBaseURL(creds.BaseURL)
	}
	if err := manager.Login(); err != nil {
		logger.Fatal("Cloud login failed", zap.Error(err))
	}
	logger.Info("Logged into VeSync cloud")

	// Discovery pipeline: dispatcher, platform entity registry, reconciler.
	dispatcher := discovery.NewDispatcher(logger)
	registry := platform.NewRegistry(logger)
	defer registry.Close()

	reconciler := discovery.NewReconciler(manager, dispatcher, registry.Setup(dispatcher), logger)

	// Optional MQTT sink.
	if cfg.MQTT.Broker != "" {
		sink, err := discovery.NewMQTTSink(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, logger)
		if err != nil {
			logger.Fatal("Failed to connect MQTT sink", zap.Error(err))
		}
		defer sink.Close()
		dispatcher.AddSink(sink)
		logger.Info("MQTT sink connected", zap.String("broker", cfg.MQTT.Broker))
	}

	// HTTP API with the WebSocket discovery feed as a sink.
	server := api.NewServer(reconciler, reconciler, logger, cfg.APIPort)
	dispatcher.AddSink(server)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start API server", zap.Error(err))
	}
	defer server.Stop()

	// Initial discovery pass.
	if err := reconciler.Reconcile(); err != nil {
		logger.Fatal("Initial device discovery failed", zap.Error(err))
	}
	logDiscovered(reconciler, logger)

	// Periodic reconcile loop.
	stopPolling := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.PollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := reconciler.Reconcile(); err != nil {
					logger.Error("Periodic device discovery failed", zap.Error(err))
				}
			case <-stopPolling:
				return
			}
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Bridge running. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-sigChan
	close(stopPolling)

	logger.Info("Shutting down gracefully...")
}

func logDiscovered(reconciler *discovery.Reconciler, logger *zap.Logger) {
	for category, devices := range reconciler.Buckets() {
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, d.Name())
		}
		logger.Info("Discovered devices",
			zap.String("category", string(category)),
			zap.Strings("devices", names))
	}
	for _, category := range classify.Categories {
		if len(reconciler.Devices(category)) == 0 {
			logger.Debug("Category empty", zap.String("category", string(category)))
		}
	}
}
