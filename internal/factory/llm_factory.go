package factory

import (
	"fmt"

	"github.com/mikey/authenticity-guardian/internal/adapters/bedrock"
	"github.com/mikey/authenticity-guardian/internal/adapters/gemini"
	"github.com/mikey/authenticity-guardian/internal/adapters/genai"
	"github.com/mikey/authenticity-guardian/internal/adapters/openai"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig, err := f.cfg.GetLLM()
	if err != nil {
		return nil, &core.ConfigError{Input: "llm.timeout", Err: err}
	}

	f.logger.Info("Creating LLM client", zap.String("provider", llmConfig.Provider))

	// Each branch checks err itself so a nil client never becomes a
	// non-nil interface.
	switch llmConfig.Provider {
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "genai":
		client, err := genai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, &core.ConfigError{
			Input: "llm.provider",
			Err:   fmt.Errorf("unsupported LLM provider: %q", llmConfig.Provider),
		}
	}
}
