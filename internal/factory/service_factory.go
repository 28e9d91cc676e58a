package factory

import (
	"fmt"

	"github.com/mikey/authenticity-guardian/internal/catalog"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

// NewServiceSettings reads the analysis service settings
func NewServiceSettings(cfg *config.Config, caches *CacheFactory) (core.ServiceSettings, error) {
	ttl, err := caches.GetCacheTTL()
	if err != nil {
		return core.ServiceSettings{}, &core.ConfigError{Input: "cache.ttl", Err: err}
	}
	if caches.IsCacheEnabled() && ttl <= 0 {
		return core.ServiceSettings{}, &core.ConfigError{
			Input: "cache.ttl",
			Err:   fmt.Errorf("must be a positive duration, got %s", ttl),
		}
	}
	notifyTimeout, err := cfg.GetDuration("notify.timeout")
	if err != nil {
		return core.ServiceSettings{}, &core.ConfigError{Input: "notify.timeout", Err: err}
	}
	return core.ServiceSettings{
		CacheEnabled:    caches.IsCacheEnabled(),
		CacheTTL:        ttl,
		NotifyThreshold: cfg.GetInt("analysis.notify_threshold"),
		NotifyTimeout:   notifyTimeout,
		MaxPromptSize:   cfg.GetInt("llm.max_prompt_size"),
	}, nil
}

// NewCatalogSource creates the configured catalog source
func NewCatalogSource(cfg *config.Config, logger *zap.Logger) core.CatalogSource {
	return catalog.NewCSVSource(cfg.GetString("catalog.path"), logger)
}
