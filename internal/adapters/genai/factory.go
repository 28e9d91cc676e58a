package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Backend names accepted in genai.backend
const (
	BackendGeminiAPI = "gemini-api"
	BackendVertexAI  = "vertex"
)

// Factory creates new instances of GenAIClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for GenAIClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// clientConfig validates the settings and builds the SDK client configuration
func (f *Factory) clientConfig(genaiCfg config.GenAIConfig) (*genai.ClientConfig, error) {
	switch genaiCfg.Backend {
	case BackendGeminiAPI, "":
		if genaiCfg.APIKey == "" {
			return nil, &core.ConfigError{Input: "genai.api_key", Err: errors.New("genai API key is required for the gemini-api backend")}
		}
		return &genai.ClientConfig{
			APIKey:  genaiCfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}, nil
	case BackendVertexAI:
		if genaiCfg.Project == "" {
			return nil, &core.ConfigError{Input: "genai.project", Err: errors.New("genai project is required for the vertex backend")}
		}
		return &genai.ClientConfig{
			Project:  genaiCfg.Project,
			Location: genaiCfg.Location,
			Backend:  genai.BackendVertexAI,
		}, nil
	default:
		return nil, &core.ConfigError{Input: "genai.backend", Err: fmt.Errorf("unsupported genai backend: %s", genaiCfg.Backend)}
	}
}

// CreateClient creates a new GenAIClient
func (f *Factory) CreateClient() (*GenAIClient, error) {
	llmCfg, err := f.cfg.GetLLM()
	if err != nil {
		return nil, &core.ConfigError{Input: "llm.timeout", Err: err}
	}
	genaiCfg := f.cfg.GetGenAI()

	clientCfg, err := f.clientConfig(genaiCfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	f.logger.Info("Created GenAI client",
		zap.String("backend", genaiCfg.Backend),
		zap.String("model", genaiCfg.ModelName))

	return NewGenAIClient(
		client.Models,
		genaiCfg.ModelName,
		genaiCfg.MaxTokens,
		genaiCfg.Temperature,
		genaiCfg.TopP,
		llmCfg.Timeout,
		llmCfg.MaxPromptSize,
		llmCfg.StructuredOutput,
		f.logger,
		f.textProcessor,
	), nil
}
