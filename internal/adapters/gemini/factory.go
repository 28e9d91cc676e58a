package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/mikey/authenticity-guardian/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new GeminiClient
func (f *Factory) CreateClient() (*GeminiClient, error) {
	llmCfg, err := f.cfg.GetLLM()
	if err != nil {
		return nil, &core.ConfigError{Input: "llm.timeout", Err: err}
	}
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, &core.ConfigError{Input: "gemini.api_key", Err: errors.New("gemini API key is required")}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(geminiCfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(geminiCfg.ModelName)
	model.SetTemperature(geminiCfg.Temperature)
	model.SetTopP(geminiCfg.TopP)
	model.SetMaxOutputTokens(int32(geminiCfg.MaxTokens))
	if llmCfg.StructuredOutput {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toSchema(core.ResponseSchema())
	}

	return NewGeminiClient(
		client,
		model,
		geminiCfg.ModelName,
		llmCfg.Timeout,
		llmCfg.MaxPromptSize,
		f.logger,
		f.textProcessor,
	), nil
}
