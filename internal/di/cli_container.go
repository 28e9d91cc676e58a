package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/logging"
)

// CLIFlags contains the command line overrides for a one shot analysis
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	Model       string
	APIKey      string
	Timeout     string
	CatalogPath string

	// Notification flags
	NotifyType string

	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideApplication(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags overlays command line flags on the loaded configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	// Set some cli specific settings
	v.Set("server.frontend", "cli")
	v.Set("cli.verbose", flags.Verbose)

	// One shot runs gain nothing from memoization
	v.Set("cache.enabled", false)

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	if flags.Timeout != "" {
		v.Set("llm.timeout", flags.Timeout)
	}
	if flags.CatalogPath != "" {
		v.Set("catalog.path", flags.CatalogPath)
	}
	if flags.NotifyType != "" {
		v.Set("notify.type", flags.NotifyType)
	}

	// Set provider-specific configuration
	provider := v.GetString("llm.provider")
	if flags.Model != "" {
		switch provider {
		case "bedrock":
			v.Set("bedrock.model_id", flags.Model)
		default:
			v.Set(provider+".model_name", flags.Model)
		}
	}
	if flags.APIKey != "" && provider != "bedrock" {
		v.Set(provider+".api_key", flags.APIKey)
	}
}
