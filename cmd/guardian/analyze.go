package main

import (
	"context"
	"errors"

	"github.com/mikey/authenticity-guardian/internal/adapters/cli"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/di"
	"github.com/mikey/authenticity-guardian/internal/ports"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeFlags di.CLIFlags
	listingName  string
	listingPrice int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single listing and print the report",
	Example: `  guardian analyze --name "VILVAH Milk Drops Brightening Serum (20ml)" --price 620
  guardian analyze --provider openai --model gpt-4o-mini --name "Serum" --price 499`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := di.BuildCLIContainer(&analyzeFlags)
		if err != nil {
			return err
		}
		return container.Invoke(func(
			logger *zap.Logger,
			frontend ports.Frontend,
			service *core.AnalysisService,
			llmClient core.LLMClient,
			sender core.NotificationSender,
		) error {
			return runAnalyze(cmd.Context(), logger, frontend, service, llmClient, sender)
		})
	},
}

func init() {
	flags := analyzeCmd.Flags()
	flags.StringVar(&listingName, "name", "", "listing name")
	flags.IntVar(&listingPrice, "price", 0, "listing price")
	flags.StringVar(&analyzeFlags.Provider, "provider", "", "LLM provider (openai, gemini, genai, bedrock)")
	flags.StringVar(&analyzeFlags.Model, "model", "", "model name or Bedrock model id")
	flags.StringVar(&analyzeFlags.APIKey, "api-key", "", "API key for the provider")
	flags.StringVar(&analyzeFlags.Timeout, "timeout", "", "model call timeout, e.g. 30s")
	flags.StringVar(&analyzeFlags.CatalogPath, "catalog", "", "path to the reference catalog CSV")
	flags.StringVar(&analyzeFlags.NotifyType, "notify", "", "notifier (log, smtp, redis, none)")
	flags.BoolVarP(&analyzeFlags.Verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&analyzeFlags.JSONLog, "json-log", false, "output logs in JSON format")
	flags.StringVarP(&analyzeFlags.ConfigFile, "config", "c", "", "path to config file")
	_ = analyzeCmd.MarkFlagRequired("name")
	_ = analyzeCmd.MarkFlagRequired("price")
}

func runAnalyze(
	ctx context.Context,
	logger *zap.Logger,
	frontend ports.Frontend,
	service *core.AnalysisService,
	llmClient core.LLMClient,
	sender core.NotificationSender,
) error {
	defer logger.Sync()

	cliFrontend, ok := frontend.(*cli.CliFrontend)
	if !ok {
		return errors.New("analyze requires the cli front end")
	}

	// The failure is reported by Ready through the front end
	_ = service.LoadCatalog(ctx)

	_, err := cliFrontend.AnalyzeListing(ctx, core.Listing{Name: listingName, Price: listingPrice})

	service.Wait()
	for _, cerr := range closeResources(llmClient, sender) {
		logger.Error("Failed to release resource", zap.Error(cerr))
	}
	return err
}
