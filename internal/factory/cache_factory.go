package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/authenticity-guardian/internal/adapters/cache"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the
// configuration. It returns nil when caching is disabled.
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	if !f.IsCacheEnabled() {
		f.logger.Info("Analysis cache disabled")
		return nil, nil
	}

	cacheType := f.cfg.GetString("cache.type")
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, &core.ConfigError{Input: "cache.cleanup_frequency", Err: err}
	}
	// Redis expires keys itself and never runs the cleanup loop.
	if cleanupFreq <= 0 && cacheType != "redis" {
		return nil, &core.ConfigError{
			Input: "cache.cleanup_frequency",
			Err:   fmt.Errorf("must be a positive duration, got %s", cleanupFreq),
		}
	}

	f.logger.Info("Creating analysis cache", zap.String("type", cacheType))

	switch cacheType {
	case "memory":
		return cache.NewMemoryCache(f.logger, cleanupFreq), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("cache.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		c, err := cache.NewSQLiteCache(sqlitePath, f.logger, cleanupFreq)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "mysql":
		c, err := cache.NewMySQLCache(f.cfg.GetString("cache.mysql_dsn"), f.logger, cleanupFreq)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		redisCfg := f.cfg.GetCacheRedis()
		c, err := cache.NewRedisCache(redisCfg.Addr, redisCfg.Password, redisCfg.DB,
			f.cfg.GetString("cache.redis_prefix"), f.logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, &core.ConfigError{Input: "cache.type", Err: fmt.Errorf("unsupported cache type: %s", cacheType)}
	}
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
