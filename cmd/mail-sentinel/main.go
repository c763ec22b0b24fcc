package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/mail-sentinel/internal/config"
	"github.com/mikey/mail-sentinel/internal/core"
	"github.com/mikey/mail-sentinel/internal/di"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	scheduler *core.IngestionScheduler,
	history core.HistoryRepository,
) error {
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("Starting mailbox monitor")
	scheduler.Run(ctx)

	// Close any resources that need closing
	if history != nil {
		if err := history.Close(); err != nil {
			logger.Error("Failed to close history repository", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
