package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/api"
	"github.com/acme/agent-ivr/internal/api/handlers"
	"github.com/acme/agent-ivr/internal/app"
	"github.com/acme/agent-ivr/internal/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", getEnv("CONFIG_FILE", "configs/config.yaml"), "path to configuration file")
	flag.Parse()

	container, err := app.Build(ctx, *configPath)
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer container.Close(context.Background())

	shutdown, err := telemetry.Setup(ctx, container.Config.Telemetry, "api", container.Config.App.Version)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), container.Config.Telemetry.ShutdownTimeout)
		defer scancel()
		_ = shutdown(sctx)
	}()

	if err := container.EnsureTopics(ctx); err != nil {
		log.Fatalf("failed to ensure kafka topics: %v", err)
	}

	go func() {
		if err := container.Sessions().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			container.Logger.Error("session sweeper stopped", zap.Error(err))
		}
	}()

	server := api.NewServer(container, handlers.NewHandlerSet(container))

	container.Logger.Info("starting API server",
		zap.String("config", *configPath),
		zap.Int("port", container.Config.HTTP.Port),
		zap.String("guard", container.Config.Guard.Backend),
		zap.Bool("kafka", container.Config.Kafka.Enabled),
	)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("server terminated: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
