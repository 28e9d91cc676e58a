package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/authenticity-guardian/internal/adapters/notify"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/factory"
	"github.com/mikey/authenticity-guardian/internal/logging"
	"github.com/mikey/authenticity-guardian/internal/ports"
	"github.com/mikey/authenticity-guardian/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the dashboard. configFile may be empty to search the default locations.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideApplication(container); err != nil {
		return nil, err
	}

	return container, nil
}

// provideApplication registers everything downstream of the configuration
// and logger
func provideApplication(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewNotifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register LLM client. A configuration problem must not stop the front
	// end from starting, so it is carried by a client that reports it.
	if err := container.Provide(func(f *factory.LLMFactory, logger *zap.Logger) core.LLMClient {
		client, err := f.CreateLLMClient()
		if err != nil {
			logger.Error("LLM client is not configured, analysis disabled", zap.Error(err))
			return core.NewMisconfiguredClient(err)
		}
		return client
	}); err != nil {
		return err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	// Register notifier. Delivery is best effort, so an unusable transport
	// falls back to the log.
	if err := container.Provide(func(f *factory.NotifierFactory, logger *zap.Logger) core.NotificationSender {
		sender, err := f.CreateNotifier()
		if err != nil {
			logger.Error("Notifier unavailable, falling back to log notifications", zap.Error(err))
			return notify.NewLogSender(logger)
		}
		return sender
	}); err != nil {
		return err
	}

	// Register service settings and catalog source
	if err := container.Provide(factory.NewServiceSettings); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCatalogSource); err != nil {
		return err
	}

	// Register analysis service
	if err := container.Provide(core.NewAnalysisService); err != nil {
		return err
	}

	// Register front end
	if err := container.Provide(func(f *factory.FrontendFactory) (ports.Frontend, error) {
		return f.CreateFrontend()
	}); err != nil {
		return err
	}

	return nil
}
