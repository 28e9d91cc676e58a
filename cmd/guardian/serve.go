package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/di"
	"github.com/mikey/authenticity-guardian/internal/ports"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveConfigFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analyst dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := di.BuildContainer(serveConfigFile)
		if err != nil {
			return err
		}
		return container.Invoke(runServe)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "path to config file")
}

// runServe is the dashboard entry point with all dependencies injected
func runServe(
	logger *zap.Logger,
	frontend ports.Frontend,
	service *core.AnalysisService,
	llmClient core.LLMClient,
	cacheRepo core.CacheRepository,
	sender core.NotificationSender,
) error {
	defer logger.Sync()

	// A bad catalog keeps the dashboard up and shows the problem there
	if err := service.LoadCatalog(context.Background()); err != nil {
		logger.Error("Catalog unavailable", zap.Error(err))
	}

	if err := frontend.Start(); err != nil {
		logger.Error("Failed to start front end", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := frontend.Stop(); err != nil {
		logger.Error("Failed to stop front end", zap.Error(err))
	}

	// Let queued notifications finish before their transports close
	service.Wait()

	for _, err := range closeResources(llmClient, cacheRepo, sender) {
		logger.Error("Failed to release resource", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
