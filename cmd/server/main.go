package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"truco-game/internal/config"
	"truco-game/internal/database"
	"truco-game/internal/server"
	"truco-game/internal/session"
)

var configPath = flag.String("config", "config.yaml", "path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting Truco server", zap.String("config", *configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to open results database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("results database ready", zap.String("driver", cfg.Database.Driver))

	opts := []server.HubOption{
		server.WithRecorder(db),
		server.WithQueueSize(cfg.Room.QueueSize),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	}
	if cfg.MQTT.Broker != "" {
		client, err := session.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			logger.Fatal("failed to connect to mqtt broker", zap.Error(err))
		}
		defer client.Disconnect(250)
		opts = append(opts, server.WithMirror(session.NewMQTTStore(client, cfg.MQTT.TopicPrefix, logger)))
		logger.Info("mirroring rooms to mqtt",
			zap.String("broker", cfg.MQTT.Broker),
			zap.String("topic_prefix", cfg.MQTT.TopicPrefix))
	}

	hub := server.NewHub(logger, opts...)
	go hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.NewRouter(hub, db, cfg.Server.StaticDir, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	logger.Info("Truco server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
